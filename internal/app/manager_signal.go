package app

import (
	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

func (m *SessionManager) handleMessage(msg core.Message) {
	switch msg := msg.(type) {
	case core.RoomListing:
		m.applySnapshot(domain.NewRoomSnapshot(msg.Members...))
	case core.VideoAdded:
		m.applySnapshot(m.snapshot.With(msg.Member))
	case core.Offer:
		m.handleOffer(msg)
	case core.IceCandidates:
		m.handleRemoteCandidates(msg)
	default:
		m.logger.Debug().Str("type", core.MessageType(msg)).Msg("ignored inbound message")
	}
}

// resolve routes msg and applies the ambiguity policy. A nil result has
// already been counted.
func (m *SessionManager) resolve(msg core.Message) *core.PeerSession {
	typ := core.MessageType(msg)
	res := m.router.Resolve(msg)
	if res.Peer == nil {
		m.unrouted(typ)
		return nil
	}
	if res.Anomaly {
		m.stats.anomalies++
		m.metrics.Anomaly()
		action := m.opts.Policy.OnAmbiguous(msg, res)
		m.logger.Warn().
			Str("type", typ).
			Str("tier", res.Tier.String()).
			Int("candidates", res.Candidates).
			Bool("dropped", action == DropMessage).
			Msg("ambiguous resolution")
		if action == DropMessage {
			m.unrouted(typ)
			return nil
		}
	}
	m.metrics.Resolved(res.Tier)
	res.Peer.Logger().Debug().Str("type", typ).Str("tier", res.Tier.String()).Msg("routed")
	return res.Peer
}

func (m *SessionManager) unrouted(typ string) {
	m.stats.unrouted++
	m.metrics.Unrouted(typ)
	m.logger.Debug().Str("type", typ).Msg("unrouted message dropped")
}

func (m *SessionManager) stale(p *core.PeerSession, typ, why string) {
	m.stats.stale++
	p.Logger().Debug().Str("type", typ).Str("state", p.State().String()).Msg(why)
}

// bind records the message's session id on p and releases the local
// candidates if that was the last thing they waited for. It reports false for
// a message from another negotiation.
func (m *SessionManager) bind(p *core.PeerSession, session domain.SessionID, typ string) bool {
	bound, err := p.BindSession(session)
	if err != nil {
		m.stale(p, typ, "session mismatch, dropped")
		return false
	}
	if bound {
		m.flushLocal(p)
	}
	return true
}

func (m *SessionManager) handleOffer(msg core.Offer) {
	p := m.resolve(msg)
	if p == nil {
		return
	}
	if p.State() == domain.StateDisconnected {
		member := domain.Member{StreamID: p.StreamID, UUID: p.UUID}
		if msg.UUID != "" {
			member.UUID = msg.UUID
		}
		p.Logger().Info().Msg("new offer while disconnected, reconnecting")
		if p = m.handoff(p, member, false); p == nil {
			return
		}
	}
	m.acceptOffer(p, msg)
}

func (m *SessionManager) acceptOffer(p *core.PeerSession, msg core.Offer) {
	if !m.bind(p, msg.Session, "offer") {
		return
	}
	p.LearnUUID(msg.UUID)
	p.Touch(m.now())

	switch p.State() {
	case domain.StateAwaitingOffer:
		h, err := m.engine.NewSession(p.Context(), p.Key, p.StreamID, m.notify)
		if err != nil {
			m.fail(p, "engine", err)
			return
		}
		p.Handle = h
		if err := p.Transition(domain.StateNegotiating); err != nil {
			p.Logger().Error().Err(err).Msg("offer")
			return
		}
		m.engine.SetRemoteDescription(p.Context(), h, msg.SDP)
	case domain.StateAnswered, domain.StateConnected, domain.StateRecording:
		p.Logger().Info().Msg("renegotiation")
		m.engine.SetRemoteDescription(p.Context(), p.Handle, msg.SDP)
	default:
		m.stale(p, "offer", "offer while negotiating, dropped")
	}
}

func (m *SessionManager) handleRemoteCandidates(msg core.IceCandidates) {
	p := m.resolve(msg)
	if p == nil {
		return
	}
	if p.State() == domain.StateDisconnected {
		m.stale(p, "candidates", "candidates for a disconnected session, dropped")
		return
	}
	if !m.bind(p, msg.Session, "candidates") {
		return
	}
	p.LearnUUID(msg.UUID)
	p.Touch(m.now())
	for _, c := range msg.List {
		if p.RemoteICE.Push(c) {
			continue
		}
		m.applyRemote(p, c)
	}
}

func (m *SessionManager) applyRemote(p *core.PeerSession, c domain.ICECandidate) {
	if err := m.engine.AddICECandidate(p.Handle, c); err != nil {
		p.Logger().Warn().Err(err).Str("candidate", c.Candidate).Msg("remote candidate rejected")
	}
}

// flushLocal sends the buffered local candidates once both the session id
// and our answer are out.
func (m *SessionManager) flushLocal(p *core.PeerSession) {
	if p.SessionID() == "" || !p.AnswerSent || p.LocalICE.Flushed() {
		return
	}
	list := p.LocalICE.Flush()
	p.Logger().Debug().Int("count", len(list)).Msg("local candidates flushed")
	if len(list) > 0 {
		m.sendLocal(p, list)
	}
}

func (m *SessionManager) sendLocal(p *core.PeerSession, list []domain.ICECandidate) {
	err := m.signal.TrySend(core.IceCandidates{
		List:    list,
		Session: p.SessionID(),
		UUID:    p.UUID,
		Type:    core.CandidatesLocal,
	})
	if err != nil {
		p.Logger().Warn().Err(err).Int("count", len(list)).Msg("local candidates not sent")
	}
}
