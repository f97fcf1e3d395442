package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/roomrec/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSessionConflict   = errors.New("session id already bound")
)

var transitions = map[domain.PeerState][]domain.PeerState{
	domain.StateAwaitingOffer: {domain.StateNegotiating, domain.StateFailed, domain.StateCleanedUp},
	domain.StateNegotiating:   {domain.StateAnswered, domain.StateFailed, domain.StateCleanedUp},
	domain.StateAnswered:      {domain.StateConnected, domain.StateFailed, domain.StateCleanedUp},
	domain.StateConnected:     {domain.StateRecording, domain.StateDisconnected, domain.StateFailed},
	domain.StateRecording:     {domain.StateDisconnected, domain.StateFailed},
	domain.StateDisconnected:  {domain.StateReconnecting, domain.StateFailed, domain.StateCleanedUp},
	domain.StateReconnecting:  {domain.StateFailed, domain.StateCleanedUp},
	domain.StateFailed:        {domain.StateCleanedUp},
}

// CanTransition reports whether from -> to is an edge of the peer state machine.
func CanTransition(from, to domain.PeerState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PeerSession is the per-stream negotiation and recording state.
// It is owned by the session manager's event loop and never locked.
type PeerSession struct {
	ID         string
	Key        SessionKey
	StreamID   domain.StreamID
	UUID       domain.UUID
	Generation int

	CreatedAt    time.Time
	LastActivity time.Time

	// LocalICE waits for the session id; RemoteICE waits for the remote description.
	LocalICE  IceBuffer
	RemoteICE IceBuffer

	Handle   MediaHandle
	Degraded bool

	// CleanupAt is set while DISCONNECTED.
	CleanupAt time.Time

	// Set when connectivity is reported before the answer was processed.
	ConnectedEarly bool
	// AnswerSent gates the local ICE flush together with the session id.
	AnswerSent     bool

	sessionID  domain.SessionID
	state      domain.PeerState
	history    []domain.PeerState
	media      []domain.Track
	pending    []domain.Track
	recordings []RecordingHandle

	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

func NewPeerSession(parent context.Context, key SessionKey, m domain.Member, now time.Time) *PeerSession {
	ctx, cancel := context.WithCancel(parent)
	p := &PeerSession{
		ID:           uuid.NewString(),
		Key:          key,
		StreamID:     m.StreamID,
		UUID:         m.UUID,
		CreatedAt:    now,
		LastActivity: now,
		state:        domain.StateAwaitingOffer,
		history:      []domain.PeerState{domain.StateAwaitingOffer},
		ctx:          ctx,
		cancel:       cancel,
	}
	p.logger = log.With().
		Str("module", "core.peer").
		Str("stream", string(p.StreamID)).
		Str("peer", p.ID).
		Logger()
	return p
}

func (p *PeerSession) Context() context.Context { return p.ctx }

func (p *PeerSession) Logger() *zerolog.Logger { return &p.logger }

func (p *PeerSession) State() domain.PeerState { return p.state }

// History lists every state visited, in order.
func (p *PeerSession) History() []domain.PeerState {
	return append([]domain.PeerState(nil), p.history...)
}

func (p *PeerSession) Transition(to domain.PeerState) error {
	if !CanTransition(p.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.state, to)
	}
	p.logger.Info().Str("from", p.state.String()).Str("to", to.String()).Msg("state")
	p.state = to
	p.history = append(p.history, to)
	return nil
}

func (p *PeerSession) SessionID() domain.SessionID { return p.sessionID }

// BindSession sets the session id once. It reports whether this call bound it;
// rebinding the same id is a no-op and a different id is ErrSessionConflict.
func (p *PeerSession) BindSession(id domain.SessionID) (bool, error) {
	if id == "" {
		return false, nil
	}
	switch p.sessionID {
	case "":
		p.sessionID = id
		p.logger = p.logger.With().Str("session", string(id)).Logger()
		return true, nil
	case id:
		return false, nil
	}
	return false, fmt.Errorf("%w: have %s, got %s", ErrSessionConflict, p.sessionID, id)
}

// LearnUUID records the connection id if the listing did not carry it.
func (p *PeerSession) LearnUUID(u domain.UUID) {
	if p.UUID == "" && u != "" {
		p.UUID = u
	}
}

func (p *PeerSession) Touch(now time.Time) { p.LastActivity = now }

// Idle reports whether the peer has been silent for longer than timeout
// without ever connecting.
func (p *PeerSession) Idle(now time.Time, timeout time.Duration) bool {
	return p.state.PreConnect() && now.Sub(p.LastActivity) > timeout
}

// AddMedia records a discovered track; it reports false for a repeat.
func (p *PeerSession) AddMedia(t domain.Track) bool {
	for _, m := range p.media {
		if m.ID == t.ID && m.Kind == t.Kind && m.Codec == t.Codec {
			return false
		}
	}
	p.media = append(p.media, t)
	return true
}

func (p *PeerSession) Media() []domain.Track {
	return append([]domain.Track(nil), p.media...)
}

// DeferTrack parks a track discovered before connectivity was reported.
func (p *PeerSession) DeferTrack(t domain.Track) { p.pending = append(p.pending, t) }

// TakeDeferredTracks returns and clears the parked tracks.
func (p *PeerSession) TakeDeferredTracks() []domain.Track {
	out := p.pending
	p.pending = nil
	return out
}

func (p *PeerSession) AddRecording(r RecordingHandle) { p.recordings = append(p.recordings, r) }

func (p *PeerSession) Recordings() []RecordingHandle {
	return append([]RecordingHandle(nil), p.recordings...)
}

// Release cancels outstanding work and closes every recording. It clears the
// ICE buffers and parked tracks; the engine handle is released by the caller.
func (p *PeerSession) Release() {
	p.cancel()
	for _, r := range p.recordings {
		if err := r.Close(); err != nil {
			p.logger.Error().Err(err).Str("path", r.Path()).Msg("close recording")
			continue
		}
		p.logger.Info().Str("path", r.Path()).Int64("bytes", r.BytesWritten()).Msg("recording closed")
	}
	p.recordings = nil
	p.pending = nil
	p.LocalICE.Reset()
	p.RemoteICE.Reset()
}
