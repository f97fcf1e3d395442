package app

import (
	"strings"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

// Tier says how a message was matched to its session.
type Tier int

const (
	TierNone Tier = iota
	TierSession
	TierUUID
	// TierFromHeuristic matched a stream id inside the free-form "from" field.
	TierFromHeuristic
	// TierAwaitingOffer gave an identifier-less offer to the session waiting for one.
	TierAwaitingOffer
)

func (t Tier) String() string {
	switch t {
	case TierSession:
		return "session"
	case TierUUID:
		return "uuid"
	case TierFromHeuristic:
		return "from_substring"
	case TierAwaitingOffer:
		return "awaiting_offer"
	}
	return "none"
}

// Exact reports whether the tier matched an identifier exactly.
func (t Tier) Exact() bool { return t == TierSession || t == TierUUID }

type Resolution struct {
	Peer *core.PeerSession
	Tier Tier
	// Anomaly is set when more than one session fit equally well.
	Anomaly    bool
	Candidates int
}

// Router resolves inbound signaling messages against the live sessions.
type Router struct {
	table *Registry
}

func NewRouter(table *Registry) *Router {
	return &Router{table: table}
}

func (r *Router) Resolve(msg core.Message) Resolution {
	var (
		session domain.SessionID
		id      domain.UUID
		from    string
		isOffer bool
	)
	switch m := msg.(type) {
	case core.Offer:
		session, id, from, isOffer = m.Session, m.UUID, m.From, true
	case core.IceCandidates:
		session, id, from = m.Session, m.UUID, m.From
	default:
		return Resolution{}
	}

	live := r.table.Live()

	if session != "" {
		for _, p := range live {
			if p.SessionID() == session {
				return Resolution{Peer: p, Tier: TierSession, Candidates: 1}
			}
		}
	}

	for _, key := range []string{string(id), from} {
		if key == "" {
			continue
		}
		for _, p := range live {
			if p.UUID != "" && string(p.UUID) == key {
				return Resolution{Peer: p, Tier: TierUUID, Candidates: 1}
			}
		}
	}

	if from != "" {
		if res := matchFrom(live, from); res.Peer != nil {
			return res
		}
	}

	if isOffer {
		var waiting []*core.PeerSession
		for _, p := range live {
			if p.State() == domain.StateAwaitingOffer && p.SessionID() == "" {
				waiting = append(waiting, p)
			}
		}
		if len(waiting) > 0 {
			// live is in creation order, so waiting[0] is the earliest.
			return Resolution{
				Peer:       waiting[0],
				Tier:       TierAwaitingOffer,
				Anomaly:    len(waiting) > 1,
				Candidates: len(waiting),
			}
		}
	}
	return Resolution{}
}

// matchFrom picks the longest stream id contained in from. Several matches of
// the same, longest length are ambiguous.
func matchFrom(live []*core.PeerSession, from string) Resolution {
	var (
		best  *core.PeerSession
		ties  int
		bestN int
	)
	for _, p := range live {
		s := string(p.StreamID)
		if s == "" || !strings.Contains(from, s) {
			continue
		}
		switch {
		case len(s) > bestN:
			best, bestN, ties = p, len(s), 1
		case len(s) == bestN:
			ties++
		}
	}
	if best == nil {
		return Resolution{}
	}
	return Resolution{Peer: best, Tier: TierFromHeuristic, Anomaly: ties > 1, Candidates: ties}
}
