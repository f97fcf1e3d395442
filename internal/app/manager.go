package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrStopped          = errors.New("session manager stopped")
	ErrIdleTimeout      = errors.New("no activity before connecting")
	ErrConnectivityLost = errors.New("connectivity lost before connecting")
)

// ChainSelector picks and names the recording chain for a track.
type ChainSelector interface {
	Select(kind domain.MediaKind, codec domain.Codec) (domain.ChainSpec, error)
	Prepare(spec domain.ChainSpec, stream domain.StreamID, now time.Time) domain.ChainSpec
}

type Options struct {
	Room            string
	IdleTimeout     time.Duration
	DisconnectGrace time.Duration
	SweepInterval   time.Duration
	// Streams limits recording to these ids; empty records everything.
	Streams         []domain.StreamID
	Policy          Policy
	QueueSize       int
	Now             func() time.Time
}

func (o *Options) defaults() {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Second
	}
	if o.DisconnectGrace <= 0 {
		o.DisconnectGrace = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Second
	}
	if o.Policy == nil {
		o.Policy = EarliestPolicy{}
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type streamSummary struct {
	generations int
	files       []string
	bytes       int64
}

// SessionManager owns every PeerSession. All of its state is touched only by
// the Run loop; other goroutines talk to it through Deliver, the engine
// notifier and Status.
type SessionManager struct {
	engine  core.MediaEngine
	signal  core.SignalConnection
	chains  ChainSelector
	metrics *Metrics
	opts    Options

	table    *Registry
	router   *Router
	snapshot domain.RoomSnapshot
	allowed  map[domain.StreamID]struct{}
	nextKey  core.SessionKey
	stats    counters

	closedBytes int64
	summary     map[domain.StreamID]*streamSummary

	inbox   chan core.Message
	events  chan core.MediaEvent
	queries chan chan Status
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

func NewSessionManager(engine core.MediaEngine, signal core.SignalConnection, chains ChainSelector, metrics *Metrics, opts Options) *SessionManager {
	opts.defaults()
	if metrics == nil {
		metrics = NewMetrics()
	}
	table := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		engine:   engine,
		signal:   signal,
		chains:   chains,
		metrics:  metrics,
		opts:     opts,
		table:    table,
		router:   NewRouter(table),
		snapshot: domain.NewRoomSnapshot(),
		summary:  make(map[domain.StreamID]*streamSummary),
		inbox:    make(chan core.Message, opts.QueueSize),
		events:   make(chan core.MediaEvent, opts.QueueSize),
		queries:  make(chan chan Status),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.With().Str("module", "app.manager").Str("room", opts.Room).Logger(),
	}
	if len(opts.Streams) > 0 {
		m.allowed = make(map[domain.StreamID]struct{}, len(opts.Streams))
		for _, id := range opts.Streams {
			m.allowed[id] = struct{}{}
		}
	}
	return m
}

// Deliver queues an inbound signaling message for the loop.
func (m *SessionManager) Deliver(ctx context.Context, msg core.Message) error {
	select {
	case m.inbox <- msg:
		return nil
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify is the core.Notifier handed to the engine for every session.
func (m *SessionManager) notify(ev core.MediaEvent) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// Status asks the loop for a consistent snapshot.
func (m *SessionManager) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case m.queries <- reply:
	case <-m.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Run processes messages, engine events and the periodic sweep until ctx is
// done, then tears every session down.
func (m *SessionManager) Run(ctx context.Context) error {
	defer close(m.done)

	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	m.logger.Info().Dur("idle_timeout", m.opts.IdleTimeout).Dur("sweep", m.opts.SweepInterval).Msg("session manager started")
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case msg := <-m.inbox:
			m.handleMessage(msg)
		case ev := <-m.events:
			m.handleEvent(ev)
		case reply := <-m.queries:
			reply <- m.status()
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *SessionManager) now() time.Time { return m.opts.Now() }

func (m *SessionManager) status() Status {
	st := Status{
		Room:       m.opts.Room,
		Counts:     make(map[string]int, len(domain.AllStates)),
		Unrouted:   m.stats.unrouted,
		Anomalies:  m.stats.anomalies,
		Stale:      m.stats.stale,
		Late:       m.stats.late,
		Duplicates: m.stats.duplicates,
		Failures:   m.stats.failures,
		Sessions:   []SessionView{},
	}
	for state, n := range m.table.CountByState() {
		st.Counts[state.String()] = n
	}
	for _, p := range m.table.Live() {
		v := viewOf(p)
		if v.Degraded {
			st.Degraded++
		}
		st.Sessions = append(st.Sessions, v)
	}
	st.RecordedBytes = m.recordedBytes()
	return st
}

func (m *SessionManager) recordedBytes() int64 {
	total := m.closedBytes
	for _, p := range m.table.Live() {
		for _, r := range p.Recordings() {
			total += r.BytesWritten()
		}
	}
	return total
}
