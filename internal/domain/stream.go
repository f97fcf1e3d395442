// Package domain contains entities without logic, just meta-data
package domain

import "sort"

type (
	StreamID  string
	UUID      string
	SessionID string
)

// Member is one published stream as the room listing reports it.
type Member struct {
	StreamID StreamID `json:"streamID"`
	UUID     UUID     `json:"UUID"`
}

// RoomSnapshot is the server's full view of room membership.
// A new listing replaces it entirely.
type RoomSnapshot map[StreamID]Member

func NewRoomSnapshot(members ...Member) RoomSnapshot {
	s := make(RoomSnapshot, len(members))
	for _, m := range members {
		if m.StreamID == "" {
			continue
		}
		s[m.StreamID] = m
	}
	return s
}

// With returns a copy of s that also contains m.
func (s RoomSnapshot) With(m Member) RoomSnapshot {
	out := make(RoomSnapshot, len(s)+1)
	for id, v := range s {
		out[id] = v
	}
	if m.StreamID != "" {
		out[m.StreamID] = m
	}
	return out
}

// Without returns a copy of s with id removed.
func (s RoomSnapshot) Without(id StreamID) RoomSnapshot {
	out := make(RoomSnapshot, len(s))
	for k, v := range s {
		if k != id {
			out[k] = v
		}
	}
	return out
}

// IDs returns the stream ids in lexical order.
func (s RoomSnapshot) IDs() []StreamID {
	ids := make([]StreamID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ICECandidate is a trickled candidate in either direction.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMLineIndex uint16  `json:"sdpMLineIndex"`
	SDPMid        *string `json:"sdpMid,omitempty"`
}
