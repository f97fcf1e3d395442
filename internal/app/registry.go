package app

import (
	"errors"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrDuplicateStream = errors.New("stream already has a live session")

// Registry is the table of live PeerSessions. It is owned by the session
// manager's loop and has no lock of its own.
type Registry struct {
	byStream map[domain.StreamID]*core.PeerSession
	byKey    map[core.SessionKey]*core.PeerSession
	order    []*core.PeerSession
}

func NewRegistry() *Registry {
	return &Registry{
		byStream: make(map[domain.StreamID]*core.PeerSession),
		byKey:    make(map[core.SessionKey]*core.PeerSession),
	}
}

func (r *Registry) Add(p *core.PeerSession) error {
	if _, ok := r.byStream[p.StreamID]; ok {
		return ErrDuplicateStream
	}
	r.byStream[p.StreamID] = p
	r.byKey[p.Key] = p
	r.order = append(r.order, p)
	log.Debug().Str("module", "app.registry").Str("stream", string(p.StreamID)).Uint64("key", uint64(p.Key)).Msg("bound session")
	return nil
}

func (r *Registry) Get(id domain.StreamID) (*core.PeerSession, bool) {
	p, ok := r.byStream[id]
	return p, ok
}

func (r *Registry) ByKey(k core.SessionKey) (*core.PeerSession, bool) {
	p, ok := r.byKey[k]
	return p, ok
}

func (r *Registry) Remove(p *core.PeerSession) {
	if cur, ok := r.byStream[p.StreamID]; ok && cur == p {
		delete(r.byStream, p.StreamID)
	}
	delete(r.byKey, p.Key)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Debug().Str("module", "app.registry").Str("stream", string(p.StreamID)).Uint64("key", uint64(p.Key)).Msg("unbind session")
}

// Live returns the sessions in creation order. The slice is a copy, so the
// caller may remove sessions while iterating.
func (r *Registry) Live() []*core.PeerSession {
	return append([]*core.PeerSession(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) CountByState() map[domain.PeerState]int {
	out := make(map[domain.PeerState]int, len(domain.AllStates))
	for _, p := range r.order {
		out[p.State()]++
	}
	return out
}
