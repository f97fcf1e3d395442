// Package rtc implements the media engine on pion/webrtc: one PeerConnection
// per recorded stream, trickle ICE, and RTP-to-file sinks per track.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownHandle = errors.New("unknown media handle")
	ErrUnknownTrack  = errors.New("track not seen on this connection")
)

type Options struct {
	ICEServers  []string
	PLIInterval time.Duration
	// Frame size written into Matroska headers; RTP does not carry it.
	VideoWidth  int
	VideoHeight int
}

func DefaultWebRTCConfig(servers []string) webrtc.Configuration {
	if len(servers) == 0 {
		servers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: servers}},
	}
}

// Engine implements core.MediaEngine.
type Engine struct {
	api  *webrtc.API
	cfg  webrtc.Configuration
	opts Options

	mu    sync.Mutex
	conns map[core.SessionKey]*connection
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.PLIInterval <= 0 {
		opts.PLIInterval = 3 * time.Second
	}
	if opts.VideoWidth <= 0 || opts.VideoHeight <= 0 {
		opts.VideoWidth, opts.VideoHeight = 1280, 720
	}

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor(intervalpli.GeneratorInterval(opts.PLIInterval))
	if err != nil {
		return nil, fmt.Errorf("pli interceptor: %w", err)
	}
	ir.Add(pli)
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	return &Engine{
		api:   webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(ir)),
		cfg:   DefaultWebRTCConfig(opts.ICEServers),
		opts:  opts,
		conns: make(map[core.SessionKey]*connection),
	}, nil
}

func (e *Engine) NewSession(ctx context.Context, key core.SessionKey, stream domain.StreamID, notify core.Notifier) (core.MediaHandle, error) {
	pc, err := e.api.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &connection{
		key:    key,
		stream: stream,
		pc:     pc,
		notify: notify,
		ctx:    ctx,
		cancel: cancel,
		tracks: make(map[string]*webrtc.TrackRemote),
		logger: log.With().Str("module", "webrtc").Str("stream", string(stream)).Uint64("key", uint64(key)).Logger(),
	}
	c.start()

	e.mu.Lock()
	e.conns[key] = c
	e.mu.Unlock()
	return c, nil
}

func (e *Engine) conn(h core.MediaHandle) (*connection, error) {
	c, ok := h.(*connection)
	if !ok || c == nil {
		return nil, ErrUnknownHandle
	}
	return c, nil
}

func (e *Engine) SetRemoteDescription(ctx context.Context, h core.MediaHandle, sdp string) {
	c, err := e.conn(h)
	if err != nil {
		return
	}
	go func() {
		err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.emit(core.MediaEvent{Kind: core.EventNegotiationFailed, Err: fmt.Errorf("set remote description: %w", err)})
			return
		}
		c.emit(core.MediaEvent{Kind: core.EventDescriptionApplied})
	}()
}

func (e *Engine) CreateAnswer(ctx context.Context, h core.MediaHandle) {
	c, err := e.conn(h)
	if err != nil {
		return
	}
	go func() {
		answer, err := c.pc.CreateAnswer(nil)
		if err == nil {
			err = c.pc.SetLocalDescription(answer)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.emit(core.MediaEvent{Kind: core.EventNegotiationFailed, Err: fmt.Errorf("create answer: %w", err)})
			return
		}
		c.emit(core.MediaEvent{Kind: core.EventAnswerCreated, SDP: answer.SDP})
	}()
}

func (e *Engine) AddICECandidate(h core.MediaHandle, cand domain.ICECandidate) error {
	c, err := e.conn(h)
	if err != nil {
		return err
	}
	return c.pc.AddICECandidate(toInit(cand))
}

func (e *Engine) AttachRecordingChain(h core.MediaHandle, track domain.Track, spec domain.ChainSpec) (core.RecordingHandle, error) {
	c, err := e.conn(h)
	if err != nil {
		return nil, err
	}
	remote, ok := c.track(track.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrack, track.ID)
	}
	s, out, err := openSink(spec, track, e.opts)
	if err != nil {
		return nil, err
	}
	rec := newRecording(spec, s, out)
	logger := c.logger.With().Str("chain", spec.Name).Str("track_id", track.ID).Logger()
	go rec.pump(c.ctx, remote, &logger)
	return rec, nil
}

func (e *Engine) Release(h core.MediaHandle) {
	c, err := e.conn(h)
	if err != nil {
		return
	}
	e.mu.Lock()
	delete(e.conns, c.key)
	e.mu.Unlock()
	c.close()
}

// Close releases every connection still open.
func (e *Engine) Close() {
	e.mu.Lock()
	conns := make([]*connection, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.conns = make(map[core.SessionKey]*connection)
	e.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

// Len is the number of open connections.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}
