package core

//go:generate mockgen -source=media_iface.go -destination=mocks/mock_media.go -package=mocks

import (
	"context"

	"github.com/dkeye/roomrec/internal/domain"
)

// SessionKey addresses one PeerSession for its whole life. Keys are never reused,
// so events for a torn-down peer cannot reach its successor.
type SessionKey uint64

// MediaHandle is the engine's opaque per-peer resource.
type MediaHandle interface {
	Key() SessionKey
}

// RecordingHandle is an attached output chain.
type RecordingHandle interface {
	Path() string
	BytesWritten() int64
	Close() error
}

type EventKind int

const (
	EventDescriptionApplied EventKind = iota
	EventAnswerCreated
	EventLocalCandidate
	EventConnectivity
	EventTrackDiscovered
	EventNegotiationFailed
)

func (k EventKind) String() string {
	switch k {
	case EventDescriptionApplied:
		return "description_applied"
	case EventAnswerCreated:
		return "answer_created"
	case EventLocalCandidate:
		return "local_candidate"
	case EventConnectivity:
		return "connectivity"
	case EventTrackDiscovered:
		return "track_discovered"
	case EventNegotiationFailed:
		return "negotiation_failed"
	}
	return "unknown"
}

type Connectivity int

const (
	ConnectivityConnected Connectivity = iota
	ConnectivityLost
)

// MediaEvent is a notification from the media engine. Only the fields
// matching Kind are set.
type MediaEvent struct {
	Key          SessionKey
	Kind         EventKind
	SDP          string
	Candidate    domain.ICECandidate
	Connectivity Connectivity
	Track        domain.Track
	Err          error
}

// Notifier is handed to the engine per session. It is safe to call from any
// goroutine; it only enqueues.
type Notifier func(MediaEvent)

// MediaEngine performs the actual negotiation and media I/O.
// SetRemoteDescription and CreateAnswer return at once and report through the
// session's Notifier; canceling ctx abandons them.
type MediaEngine interface {
	NewSession(ctx context.Context, key SessionKey, streamID domain.StreamID, notify Notifier) (MediaHandle, error)
	SetRemoteDescription(ctx context.Context, h MediaHandle, sdp string)
	CreateAnswer(ctx context.Context, h MediaHandle)
	AddICECandidate(h MediaHandle, c domain.ICECandidate) error
	AttachRecordingChain(h MediaHandle, track domain.Track, spec domain.ChainSpec) (RecordingHandle, error)
	Release(h MediaHandle)
}
