package rtc

import (
	"context"
	"sync"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// connection is one PeerConnection and the remote tracks it has seen. It is
// the MediaHandle the session manager holds.
type connection struct {
	key    core.SessionKey
	stream domain.StreamID
	pc     *webrtc.PeerConnection
	notify core.Notifier
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tracks map[string]*webrtc.TrackRemote
	closed bool
}

func (c *connection) Key() core.SessionKey { return c.key }

// emit forwards an event unless the connection was released. The lock is not
// held while notifying.
func (c *connection) emit(ev core.MediaEvent) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	ev.Key = c.key
	c.notify(ev)
}

func (c *connection) start() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.emit(core.MediaEvent{Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			c.emit(core.MediaEvent{Kind: core.EventConnectivity, Connectivity: core.ConnectivityLost})
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.emit(core.MediaEvent{Kind: core.EventLocalCandidate, Candidate: fromInit(cand.ToJSON())})
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		t := describe(track)
		c.logger.Info().
			Str("kind", string(t.Kind)).
			Str("codec", string(t.Codec)).
			Str("track_id", t.ID).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.Lock()
		c.tracks[t.ID] = track
		c.mu.Unlock()
		c.emit(core.MediaEvent{Kind: core.EventTrackDiscovered, Track: t})
	})
}

func (c *connection) track(id string) (*webrtc.TrackRemote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tracks[id]
	return t, ok
}

func (c *connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return
	}
	c.logger.Info().Msg("closed")
}

func describe(track *webrtc.TrackRemote) domain.Track {
	codec := track.Codec()
	kind, name := domain.CodecFromMimeType(codec.MimeType)
	if kind == "" {
		kind = domain.MediaKind(track.Kind().String())
	}
	id := track.ID()
	if id == "" {
		id = track.Kind().String()
	}
	return domain.Track{
		ID:        id,
		Kind:      kind,
		Codec:     name,
		ClockRate: codec.ClockRate,
		Channels:  codec.Channels,
	}
}

func fromInit(ci webrtc.ICECandidateInit) domain.ICECandidate {
	c := domain.ICECandidate{Candidate: ci.Candidate, SDPMid: ci.SDPMid}
	if ci.SDPMLineIndex != nil {
		c.SDPMLineIndex = *ci.SDPMLineIndex
	}
	return c
}

func toInit(c domain.ICECandidate) webrtc.ICECandidateInit {
	idx := c.SDPMLineIndex
	return webrtc.ICECandidateInit{Candidate: c.Candidate, SDPMid: c.SDPMid, SDPMLineIndex: &idx}
}
