package core

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signal.go -package=mocks

import "github.com/dkeye/roomrec/internal/domain"

// Message is one signaling message in either direction.
// Messages are immutable values; nothing keeps them after routing.
type Message interface {
	isMessage()
}

// Offer is a remote SDP offer. Session, UUID and From may all be empty.
type Offer struct {
	SDP     string
	Session domain.SessionID
	UUID    domain.UUID
	From    string
}

// Answer is only ever sent.
type Answer struct {
	SDP     string
	Session domain.SessionID
	UUID    domain.UUID
}

type CandidateDirection string

const (
	CandidatesLocal  CandidateDirection = "local"
	CandidatesRemote CandidateDirection = "remote"
)

type IceCandidates struct {
	List    []domain.ICECandidate
	Session domain.SessionID
	UUID    domain.UUID
	From    string
	Type    CandidateDirection
}

type PlayRequest struct {
	StreamID domain.StreamID
}

type RoomListing struct {
	Members []domain.Member
}

// VideoAdded announces one stream joining after the initial listing.
type VideoAdded struct {
	Member domain.Member
}

type JoinRoom struct {
	RoomID string
}

func (Offer) isMessage()         {}
func (Answer) isMessage()        {}
func (IceCandidates) isMessage() {}
func (PlayRequest) isMessage()   {}
func (RoomListing) isMessage()   {}
func (VideoAdded) isMessage()    {}
func (JoinRoom) isMessage()      {}

// MessageType is a short label for logs and metrics.
func MessageType(m Message) string {
	switch m.(type) {
	case Offer:
		return "offer"
	case Answer:
		return "answer"
	case IceCandidates:
		return "candidates"
	case PlayRequest:
		return "play"
	case RoomListing:
		return "listing"
	case VideoAdded:
		return "videoaddedtoroom"
	case JoinRoom:
		return "joinroom"
	}
	return "unknown"
}

// SignalConnection abstracts the signaling transport.
// Owned by the adapter; TrySend never blocks.
type SignalConnection interface {
	TrySend(Message) error
}
