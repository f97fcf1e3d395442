package app

import (
	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

// applySnapshot makes the session table follow cur, which replaces the
// previous snapshot entirely.
func (m *SessionManager) applySnapshot(cur domain.RoomSnapshot) {
	cur = m.filter(cur)
	diff := Reconcile(m.snapshot, cur)
	m.snapshot = cur
	if diff.Empty() {
		return
	}
	m.logger.Info().Int("members", len(cur)).Int("add", len(diff.ToAdd)).Int("remove", len(diff.ToRemove)).Msg("room changed")
	for _, id := range diff.ToRemove {
		m.removeStream(id)
	}
	for _, id := range diff.ToAdd {
		m.addStream(cur[id])
	}
}

func (m *SessionManager) filter(s domain.RoomSnapshot) domain.RoomSnapshot {
	if m.allowed == nil {
		return s
	}
	out := make(domain.RoomSnapshot, len(s))
	for id, member := range s {
		if _, ok := m.allowed[id]; ok {
			out[id] = member
		}
	}
	return out
}

// forget drops id from the snapshot, so the next listing that still carries it
// starts a fresh session.
func (m *SessionManager) forget(id domain.StreamID) {
	m.snapshot = m.snapshot.Without(id)
}

func (m *SessionManager) addStream(member domain.Member) {
	p, ok := m.table.Get(member.StreamID)
	if !ok {
		m.spawn(member, 0, true)
		return
	}
	if p.State() == domain.StateDisconnected {
		m.handoff(p, member, true)
		return
	}
	m.stats.duplicates++
	p.Logger().Warn().Str("state", p.State().String()).Msg("stream already has a live session, add ignored")
}

func (m *SessionManager) removeStream(id domain.StreamID) {
	p, ok := m.table.Get(id)
	if !ok {
		return
	}
	switch st := p.State(); {
	case st.PreConnect():
		p.Logger().Info().Msg("left the room before connecting")
		m.teardown(p)
	case st.Connected():
		m.disconnect(p)
	}
}

// spawn creates a session for member and, unless the remote is already
// offering, asks the server to send us the stream.
func (m *SessionManager) spawn(member domain.Member, generation int, play bool) *core.PeerSession {
	m.nextKey++
	p := core.NewPeerSession(m.ctx, m.nextKey, member, m.now())
	p.Generation = generation
	if err := m.table.Add(p); err != nil {
		m.stats.duplicates++
		p.Logger().Warn().Err(err).Msg("spawn")
		return nil
	}
	if s, ok := m.summary[p.StreamID]; ok {
		s.generations++
	} else {
		m.summary[p.StreamID] = &streamSummary{generations: 1}
	}
	p.Logger().Info().Str("uuid", string(p.UUID)).Int("gen", generation).Msg("session created")
	if !play {
		return p
	}
	if err := m.signal.TrySend(core.PlayRequest{StreamID: member.StreamID}); err != nil {
		p.Logger().Warn().Err(err).Msg("play request not sent")
	}
	return p
}

// handoff replaces a DISCONNECTED session with a fresh one for the same
// stream. The old session goes through RECONNECTING to CLEANED_UP so none of
// its buffered state survives.
func (m *SessionManager) handoff(old *core.PeerSession, member domain.Member, play bool) *core.PeerSession {
	if err := old.Transition(domain.StateReconnecting); err != nil {
		old.Logger().Error().Err(err).Msg("handoff")
		return nil
	}
	gen := old.Generation + 1
	m.teardown(old)
	return m.spawn(member, gen, play)
}

func (m *SessionManager) disconnect(p *core.PeerSession) {
	if err := p.Transition(domain.StateDisconnected); err != nil {
		p.Logger().Error().Err(err).Msg("disconnect")
		return
	}
	p.CleanupAt = m.now().Add(m.opts.DisconnectGrace)
}

// fail marks the session FAILED and releases it. Nothing outside the session
// is affected.
func (m *SessionManager) fail(p *core.PeerSession, reason string, err error) {
	if p.State() == domain.StateFailed || p.State().Terminal() {
		return
	}
	if terr := p.Transition(domain.StateFailed); terr != nil {
		p.Logger().Error().Err(terr).Msg("fail")
		return
	}
	m.stats.failures++
	m.metrics.Failure(reason)
	p.Logger().Warn().Err(err).Str("reason", reason).Msg("session failed")
	m.forget(p.StreamID)
	m.teardown(p)
}

// teardown releases everything the session holds and removes it from the
// table. Events still in flight for its key are dropped on arrival.
func (m *SessionManager) teardown(p *core.PeerSession) {
	if p.State().Connected() {
		_ = p.Transition(domain.StateDisconnected)
	}
	for _, r := range p.Recordings() {
		m.closedBytes += r.BytesWritten()
		if s, ok := m.summary[p.StreamID]; ok && r.Path() != "" {
			s.files = append(s.files, r.Path())
			s.bytes += r.BytesWritten()
		}
	}
	p.Release()
	if p.Handle != nil {
		m.engine.Release(p.Handle)
		p.Handle = nil
	}
	if err := p.Transition(domain.StateCleanedUp); err != nil {
		p.Logger().Error().Err(err).Msg("cleanup")
	}
	m.table.Remove(p)
}

func (m *SessionManager) shutdown() {
	m.logger.Info().Int("sessions", m.table.Len()).Msg("shutting down")
	for _, p := range m.table.Live() {
		m.teardown(p)
	}
	m.cancel()
	m.publish()
	for _, id := range sortedSummaryIDs(m.summary) {
		s := m.summary[id]
		m.logger.Info().
			Str("stream", string(id)).
			Int("sessions", s.generations).
			Strs("files", s.files).
			Int64("bytes", s.bytes).
			Msg("stream summary")
	}
}

func sortedSummaryIDs(in map[domain.StreamID]*streamSummary) []domain.StreamID {
	ids := make([]domain.StreamID, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}
