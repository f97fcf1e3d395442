package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

var (
	ErrUnknownMessage = errors.New("unknown signaling message")
	ErrEncrypted      = errors.New("encrypted signaling payload")
)

type description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// envelope is the union of every field the room server uses. Which message
// it carries is decided by request, description or candidates.
type envelope struct {
	Request     string                `json:"request,omitempty"`
	List        []domain.Member       `json:"list,omitempty"`
	StreamID    domain.StreamID       `json:"streamID,omitempty"`
	RoomID      string                `json:"roomid,omitempty"`
	Description json.RawMessage       `json:"description,omitempty"`
	Candidates  []domain.ICECandidate `json:"candidates,omitempty"`
	Candidate   *domain.ICECandidate  `json:"candidate,omitempty"`
	Session     domain.SessionID      `json:"session,omitempty"`
	UUID        domain.UUID           `json:"UUID,omitempty"`
	From        string                `json:"from,omitempty"`
	Type        string                `json:"type,omitempty"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (core.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch env.Request {
	case "listing":
		return core.RoomListing{Members: env.List}, nil
	case "videoaddedtoroom":
		return core.VideoAdded{Member: domain.Member{StreamID: env.StreamID, UUID: env.UUID}}, nil
	case "play":
		return core.PlayRequest{StreamID: env.StreamID}, nil
	case "joinroom":
		return core.JoinRoom{RoomID: env.RoomID}, nil
	case "":
	default:
		return nil, fmt.Errorf("%w: request %q", ErrUnknownMessage, env.Request)
	}

	if len(env.Description) > 0 {
		raw := bytes.TrimSpace(env.Description)
		if len(raw) > 0 && raw[0] == '"' {
			return nil, ErrEncrypted
		}
		var d description
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode description: %w", err)
		}
		switch d.Type {
		case "offer":
			return core.Offer{SDP: d.SDP, Session: env.Session, UUID: env.UUID, From: env.From}, nil
		case "answer":
			return core.Answer{SDP: d.SDP, Session: env.Session, UUID: env.UUID}, nil
		}
		return nil, fmt.Errorf("%w: description %q", ErrUnknownMessage, d.Type)
	}

	list := env.Candidates
	if env.Candidate != nil {
		list = append(list, *env.Candidate)
	}
	if len(list) > 0 {
		dir := core.CandidatesRemote
		if env.Type == string(core.CandidatesLocal) {
			dir = core.CandidatesLocal
		}
		return core.IceCandidates{List: list, Session: env.Session, UUID: env.UUID, From: env.From, Type: dir}, nil
	}
	return nil, ErrUnknownMessage
}

// Encode renders a message in the room server's wire shape.
func Encode(m core.Message) ([]byte, error) {
	var env envelope
	switch m := m.(type) {
	case core.Answer:
		env.Description = rawDescription("answer", m.SDP)
		env.Session, env.UUID = m.Session, m.UUID
	case core.Offer:
		env.Description = rawDescription("offer", m.SDP)
		env.Session, env.UUID, env.From = m.Session, m.UUID, m.From
	case core.IceCandidates:
		env.Candidates = m.List
		env.Session, env.UUID, env.From = m.Session, m.UUID, m.From
		env.Type = string(m.Type)
	case core.PlayRequest:
		env.Request, env.StreamID = "play", m.StreamID
	case core.JoinRoom:
		env.Request, env.RoomID = "joinroom", m.RoomID
	case core.RoomListing:
		env.Request, env.List = "listing", m.Members
	case core.VideoAdded:
		env.Request, env.StreamID, env.UUID = "videoaddedtoroom", m.Member.StreamID, m.Member.UUID
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
	return json.Marshal(env)
}

func rawDescription(typ, sdp string) json.RawMessage {
	b, _ := json.Marshal(description{Type: typ, SDP: sdp})
	return b
}
