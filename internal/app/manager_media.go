package app

import (
	"errors"

	"github.com/dkeye/roomrec/internal/app/record"
	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

func (m *SessionManager) handleEvent(ev core.MediaEvent) {
	p, ok := m.table.ByKey(ev.Key)
	if !ok {
		m.stats.late++
		m.logger.Debug().Uint64("key", uint64(ev.Key)).Str("event", ev.Kind.String()).Msg("event for a released session dropped")
		return
	}
	p.Touch(m.now())

	switch ev.Kind {
	case core.EventDescriptionApplied:
		m.onDescriptionApplied(p)
	case core.EventAnswerCreated:
		m.onAnswer(p, ev.SDP)
	case core.EventLocalCandidate:
		m.onLocalCandidate(p, ev.Candidate)
	case core.EventConnectivity:
		m.onConnectivity(p, ev.Connectivity)
	case core.EventTrackDiscovered:
		m.onTrack(p, ev.Track)
	case core.EventNegotiationFailed:
		m.fail(p, "negotiation", ev.Err)
	}
}

func (m *SessionManager) onDescriptionApplied(p *core.PeerSession) {
	list := p.RemoteICE.Flush()
	for _, c := range list {
		m.applyRemote(p, c)
	}
	if len(list) > 0 {
		p.Logger().Debug().Int("count", len(list)).Msg("remote candidates flushed")
	}
	m.engine.CreateAnswer(p.Context(), p.Handle)
}

func (m *SessionManager) onAnswer(p *core.PeerSession, sdp string) {
	err := m.signal.TrySend(core.Answer{SDP: sdp, Session: p.SessionID(), UUID: p.UUID})
	if err != nil {
		m.fail(p, "signal", err)
		return
	}
	p.AnswerSent = true
	if p.State() == domain.StateNegotiating {
		if err := p.Transition(domain.StateAnswered); err != nil {
			p.Logger().Error().Err(err).Msg("answer")
			return
		}
		if p.ConnectedEarly {
			m.connect(p)
		}
	}
	m.flushLocal(p)
}

func (m *SessionManager) onLocalCandidate(p *core.PeerSession, c domain.ICECandidate) {
	if p.LocalICE.Push(c) {
		return
	}
	m.sendLocal(p, []domain.ICECandidate{c})
}

func (m *SessionManager) onConnectivity(p *core.PeerSession, c core.Connectivity) {
	st := p.State()
	if c == core.ConnectivityLost {
		switch {
		case st.PreConnect():
			m.fail(p, "connectivity", ErrConnectivityLost)
		case st.Connected():
			p.Logger().Info().Msg("connectivity lost")
			m.disconnect(p)
		}
		return
	}
	switch st {
	case domain.StateNegotiating:
		p.ConnectedEarly = true
	case domain.StateAnswered:
		m.connect(p)
	}
}

func (m *SessionManager) connect(p *core.PeerSession) {
	if err := p.Transition(domain.StateConnected); err != nil {
		p.Logger().Error().Err(err).Msg("connect")
		return
	}
	p.ConnectedEarly = false
	for _, t := range p.TakeDeferredTracks() {
		m.attach(p, t)
	}
}

func (m *SessionManager) onTrack(p *core.PeerSession, t domain.Track) {
	if !p.AddMedia(t) {
		return
	}
	p.Logger().Info().Str("kind", string(t.Kind)).Str("codec", string(t.Codec)).Str("track", t.ID).Msg("track discovered")
	if !p.State().Connected() {
		p.DeferTrack(t)
		return
	}
	m.attach(p, t)
}

// attach gives the track its recording chain. Tracks nothing can record
// still get a discard chain so the engine keeps draining them.
func (m *SessionManager) attach(p *core.PeerSession, t domain.Track) {
	spec, err := m.chains.Select(t.Kind, t.Codec)
	supported := err == nil
	if supported {
		spec = m.chains.Prepare(spec, p.StreamID, m.now())
	} else {
		if !errors.Is(err, record.ErrUnsupported) {
			p.Logger().Error().Err(err).Msg("select chain")
		}
		p.Logger().Warn().Str("kind", string(t.Kind)).Str("codec", string(t.Codec)).Msg("unsupported track, draining without recording")
		p.Degraded = true
		spec = domain.DiscardChain(t)
	}

	rec, err := m.engine.AttachRecordingChain(p.Handle, t, spec)
	if err != nil {
		p.Degraded = true
		m.metrics.Failure("attach")
		p.Logger().Error().Err(err).Str("chain", spec.Name).Msg("attach recording chain")
		return
	}
	if rec != nil {
		p.AddRecording(rec)
	}
	if !supported {
		return
	}
	p.Logger().Info().Str("chain", spec.Name).Str("path", spec.OutputPath).Msg("recording")
	if p.State() == domain.StateConnected {
		if err := p.Transition(domain.StateRecording); err != nil {
			p.Logger().Error().Err(err).Msg("record")
		}
	}
}

// sweep enforces the idle timeout and the disconnect grace, then publishes
// aggregate statistics.
func (m *SessionManager) sweep() {
	now := m.now()
	for _, p := range m.table.Live() {
		switch {
		case p.Idle(now, m.opts.IdleTimeout):
			m.fail(p, "idle_timeout", ErrIdleTimeout)
		case p.State() == domain.StateDisconnected && !now.Before(p.CleanupAt):
			p.Logger().Info().Msg("disconnect grace elapsed")
			m.forget(p.StreamID)
			m.teardown(p)
		}
	}
	counts := m.publish()
	m.logger.Info().
		Int("active", m.table.Len()).
		Int("recording", counts[domain.StateRecording]).
		Int64("bytes", m.recordedBytes()).
		Int64("unrouted", m.stats.unrouted).
		Msg("stats")
}

func (m *SessionManager) publish() map[domain.PeerState]int {
	counts := m.table.CountByState()
	m.metrics.SetSessions(counts)
	m.metrics.SetRecordedBytes(m.recordedBytes())
	return counts
}
