package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/roomrec/internal/app/record"
	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/core/mocks"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stubHandle struct{ key core.SessionKey }

func (h stubHandle) Key() core.SessionKey { return h.key }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	t      *testing.T
	ctrl   *gomock.Controller
	engine *mocks.MockMediaEngine
	signal *mocks.MockSignalConnection
	clock  *fakeClock
	m      *SessionManager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		t:      t,
		ctrl:   ctrl,
		engine: mocks.NewMockMediaEngine(ctrl),
		signal: mocks.NewMockSignalConnection(ctrl),
		clock:  &fakeClock{now: time.Unix(1700000000, 0)},
	}
	sel, err := record.NewSelector(record.Options{Room: "room", OutputDir: t.TempDir()})
	require.NoError(t, err)
	opts.Room = "room"
	opts.Now = f.clock.Now
	f.m = NewSessionManager(f.engine, f.signal, sel, NewMetrics(), opts)
	return f
}

// pump runs every queued engine event through the loop handler.
func (f *fixture) pump() {
	for {
		select {
		case ev := <-f.m.events:
			f.m.handleEvent(ev)
		default:
			return
		}
	}
}

func (f *fixture) emit(ev core.MediaEvent) {
	f.m.notify(ev)
	f.pump()
}

func (f *fixture) listing(members ...domain.Member) {
	for _, m := range members {
		if _, live := f.m.table.Get(m.StreamID); !live {
			f.signal.EXPECT().TrySend(core.PlayRequest{StreamID: m.StreamID}).Return(nil)
		}
	}
	f.m.handleMessage(core.RoomListing{Members: members})
}

func (f *fixture) peer(id domain.StreamID) *core.PeerSession {
	f.t.Helper()
	p, ok := f.m.table.Get(id)
	require.True(f.t, ok, "no live session for %s", id)
	return p
}

// offer delivers an offer to the session for id and completes the engine
// round trip up to ANSWERED.
func (f *fixture) offer(id domain.StreamID, msg core.Offer) *core.PeerSession {
	f.t.Helper()
	h := stubHandle{key: f.m.nextKey}
	if p, ok := f.m.table.Get(id); ok && p.State() == domain.StateAwaitingOffer {
		h = stubHandle{key: p.Key}
	} else {
		h.key++
	}
	f.engine.EXPECT().NewSession(gomock.Any(), h.key, id, gomock.Any()).Return(h, nil)
	f.engine.EXPECT().SetRemoteDescription(gomock.Any(), h, msg.SDP)
	f.m.handleMessage(msg)

	p := f.peer(id)
	require.Equal(f.t, domain.StateNegotiating, p.State())

	f.engine.EXPECT().CreateAnswer(gomock.Any(), h)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventDescriptionApplied})
	f.signal.EXPECT().TrySend(core.Answer{SDP: "answer-" + msg.SDP, Session: p.SessionID(), UUID: p.UUID}).Return(nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventAnswerCreated, SDP: "answer-" + msg.SDP})
	require.Equal(f.t, domain.StateAnswered, p.State())
	return p
}

func (f *fixture) connected(member domain.Member, session domain.SessionID) *core.PeerSession {
	f.t.Helper()
	f.listing(member)
	p := f.offer(member.StreamID, core.Offer{SDP: "sdp-" + string(member.StreamID), Session: session, UUID: member.UUID})
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})
	require.Equal(f.t, domain.StateConnected, p.State())
	return p
}

func (f *fixture) recordingMock(path string) *mocks.MockRecordingHandle {
	rec := mocks.NewMockRecordingHandle(f.ctrl)
	rec.EXPECT().Path().Return(path).AnyTimes()
	rec.EXPECT().BytesWritten().Return(int64(1024)).AnyTimes()
	return rec
}

func cand(s string) domain.ICECandidate {
	return domain.ICECandidate{Candidate: "candidate:" + s}
}

func TestListingScenarioFromSubstringThenSessionBind(t *testing.T) {
	f := newFixture(t, Options{})

	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.peer("s1")
	assert.Equal(t, domain.StateAwaitingOffer, p.State())

	p = f.offer("s1", core.Offer{SDP: "o1", UUID: "u1", From: "s1-suffix"})
	assert.Empty(t, p.SessionID())

	// Candidates gathered before the session id is known are held back.
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventLocalCandidate, Candidate: cand("a")})
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventLocalCandidate, Candidate: cand("b")})
	assert.Equal(t, 2, p.LocalICE.Len())

	h := p.Handle
	gomock.InOrder(
		f.signal.EXPECT().TrySend(core.IceCandidates{
			List:    []domain.ICECandidate{cand("a"), cand("b")},
			Session: "sess-123",
			UUID:    "u1",
			Type:    core.CandidatesLocal,
		}).Return(nil),
		f.engine.EXPECT().AddICECandidate(h, cand("r1")).Return(nil),
	)
	f.m.handleMessage(core.IceCandidates{
		List:    []domain.ICECandidate{cand("r1")},
		Session: "sess-123",
		From:    "s1-suffix",
	})
	assert.Equal(t, domain.SessionID("sess-123"), p.SessionID())
	assert.Equal(t, 1, p.LocalICE.Drains())

	// Later candidates go straight out.
	f.signal.EXPECT().TrySend(core.IceCandidates{
		List:    []domain.ICECandidate{cand("c")},
		Session: "sess-123",
		UUID:    "u1",
		Type:    core.CandidatesLocal,
	}).Return(nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventLocalCandidate, Candidate: cand("c")})
	assert.Equal(t, 1, p.LocalICE.Drains())
	assert.Zero(t, p.LocalICE.Len())
}

func TestRoutingSameMessageTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")

	msg := core.IceCandidates{List: []domain.ICECandidate{cand("x")}, Session: "sess-1"}
	f.engine.EXPECT().AddICECandidate(p.Handle, cand("x")).Return(nil).Times(2)
	f.m.handleMessage(msg)
	f.m.handleMessage(msg)
	assert.Equal(t, domain.SessionID("sess-1"), p.SessionID())
	assert.Zero(t, f.m.stats.stale)
}

func TestRemoteCandidatesWaitForDescription(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.peer("s1")

	h := stubHandle{key: p.Key}
	f.engine.EXPECT().NewSession(gomock.Any(), p.Key, domain.StreamID("s1"), gomock.Any()).Return(h, nil)
	f.engine.EXPECT().SetRemoteDescription(gomock.Any(), h, "o")
	f.m.handleMessage(core.Offer{SDP: "o", Session: "sess", UUID: "u1"})

	f.m.handleMessage(core.IceCandidates{List: []domain.ICECandidate{cand("1"), cand("2")}, Session: "sess"})
	assert.Equal(t, 2, p.RemoteICE.Len())

	gomock.InOrder(
		f.engine.EXPECT().AddICECandidate(h, cand("1")).Return(nil),
		f.engine.EXPECT().AddICECandidate(h, cand("2")).Return(nil),
		f.engine.EXPECT().CreateAnswer(gomock.Any(), h),
	)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventDescriptionApplied})
	assert.Equal(t, 1, p.RemoteICE.Drains())
}

func TestUnsupportedCodecStaysConnected(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")

	av1 := domain.Track{ID: "v0", Kind: domain.KindVideo, Codec: domain.CodecAV1}
	rec := f.recordingMock("")
	f.engine.EXPECT().AttachRecordingChain(p.Handle, av1, domain.DiscardChain(av1)).Return(rec, nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: av1})

	assert.Equal(t, domain.StateConnected, p.State())
	assert.True(t, p.Degraded)
	assert.NotContains(t, p.History(), domain.StateRecording)
	assert.Equal(t, 1, f.m.status().Degraded)
}

func TestSupportedTrackStartsRecording(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")

	h264 := domain.Track{ID: "v0", Kind: domain.KindVideo, Codec: domain.CodecH264}
	var got domain.ChainSpec
	f.engine.EXPECT().AttachRecordingChain(p.Handle, h264, gomock.Any()).
		DoAndReturn(func(_ core.MediaHandle, _ domain.Track, spec domain.ChainSpec) (core.RecordingHandle, error) {
			got = spec
			return f.recordingMock(spec.OutputPath), nil
		})
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: h264})

	assert.Equal(t, domain.StateRecording, p.State())
	assert.Equal(t, "h264-ts", got.Name)
	assert.Contains(t, got.OutputPath, "room_s1_1700000000.ts")

	// A repeated track notification attaches nothing.
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: h264})
	assert.Len(t, p.Recordings(), 1)
}

func TestTracksBeforeConnectivityAreDeferred(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.offer("s1", core.Offer{SDP: "o", Session: "sess", UUID: "u1"})

	opus := domain.Track{ID: "a0", Kind: domain.KindAudio, Codec: domain.CodecOpus}
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: opus})
	assert.Equal(t, domain.StateAnswered, p.State())

	f.engine.EXPECT().AttachRecordingChain(p.Handle, opus, gomock.Any()).Return(f.recordingMock("a.ogg"), nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})
	assert.Equal(t, domain.StateRecording, p.State())
}

func TestConnectivityBeforeAnswer(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.peer("s1")
	h := stubHandle{key: p.Key}

	f.engine.EXPECT().NewSession(gomock.Any(), p.Key, domain.StreamID("s1"), gomock.Any()).Return(h, nil)
	f.engine.EXPECT().SetRemoteDescription(gomock.Any(), h, "o")
	f.m.handleMessage(core.Offer{SDP: "o", Session: "sess", UUID: "u1"})

	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})
	assert.Equal(t, domain.StateNegotiating, p.State())

	f.signal.EXPECT().TrySend(core.Answer{SDP: "a", Session: "sess", UUID: "u1"}).Return(nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventAnswerCreated, SDP: "a"})
	assert.Equal(t, domain.StateConnected, p.State())
}

func TestIdleTimeoutFailsAndRetries(t *testing.T) {
	f := newFixture(t, Options{IdleTimeout: 30 * time.Second})
	member := domain.Member{StreamID: "s1", UUID: "u1"}
	f.listing(member)
	p := f.peer("s1")

	f.clock.Advance(10 * time.Second)
	f.m.sweep()
	assert.Equal(t, domain.StateAwaitingOffer, p.State())

	f.clock.Advance(25 * time.Second)
	f.m.sweep()
	assert.Equal(t, []domain.PeerState{domain.StateAwaitingOffer, domain.StateFailed, domain.StateCleanedUp}, p.History())
	assert.Zero(t, f.m.table.Len())
	assert.EqualValues(t, 1, f.m.stats.failures)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.metrics.failures.WithLabelValues("idle_timeout")))

	// The same listing again starts over.
	f.listing(member)
	fresh := f.peer("s1")
	assert.NotEqual(t, p.Key, fresh.Key)
}

func TestNegotiationFailureIsIsolated(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"}, domain.Member{StreamID: "s2", UUID: "u2"})
	p1 := f.offer("s1", core.Offer{SDP: "o1", Session: "sess-1", UUID: "u1"})
	p2 := f.peer("s2")

	f.engine.EXPECT().Release(p1.Handle)
	f.emit(core.MediaEvent{Key: p1.Key, Kind: core.EventNegotiationFailed, Err: errors.New("bad sdp")})

	assert.Equal(t, domain.StateCleanedUp, p1.State())
	assert.Contains(t, p1.History(), domain.StateFailed)
	assert.Equal(t, domain.StateAwaitingOffer, p2.State())
	assert.Equal(t, 1, f.m.table.Len())
}

func TestLostBeforeConnectFails(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.offer("s1", core.Offer{SDP: "o", Session: "sess", UUID: "u1"})

	f.engine.EXPECT().Release(p.Handle)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityLost})
	assert.Contains(t, p.History(), domain.StateFailed)
	assert.NotContains(t, p.History(), domain.StateConnected)
}

func TestReconnectHandsOffToFreshSession(t *testing.T) {
	f := newFixture(t, Options{DisconnectGrace: 5 * time.Second})
	old := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")
	oldHandle := old.Handle

	f.emit(core.MediaEvent{Key: old.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityLost})
	require.Equal(t, domain.StateDisconnected, old.State())

	f.engine.EXPECT().Release(oldHandle)
	fresh := f.offer("s1", core.Offer{SDP: "o2", Session: "sess-2", UUID: "u1"})

	assert.NotSame(t, old, fresh)
	assert.Equal(t, 1, fresh.Generation)
	assert.Equal(t, domain.SessionID("sess-2"), fresh.SessionID())
	h := old.History()
	assert.Equal(t, []domain.PeerState{domain.StateReconnecting, domain.StateCleanedUp}, h[len(h)-2:])

	// A late event for the released session does not touch the new one.
	f.emit(core.MediaEvent{Key: old.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})
	assert.EqualValues(t, 1, f.m.stats.late)
	assert.Equal(t, domain.StateAnswered, fresh.State())
	assert.Equal(t, domain.StateCleanedUp, old.State())
}

func TestRelistedStreamWithNewUUIDReplacesSession(t *testing.T) {
	f := newFixture(t, Options{})
	old := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")

	f.engine.EXPECT().Release(old.Handle)
	f.signal.EXPECT().TrySend(core.PlayRequest{StreamID: "s1"}).Return(nil)
	f.m.handleMessage(core.RoomListing{Members: []domain.Member{{StreamID: "s1", UUID: "u2"}}})

	fresh := f.peer("s1")
	assert.Equal(t, domain.UUID("u2"), fresh.UUID)
	assert.Equal(t, domain.StateAwaitingOffer, fresh.State())
	assert.Equal(t, 1, fresh.Generation)
	assert.Contains(t, old.History(), domain.StateReconnecting)
}

func TestLeavingRoom(t *testing.T) {
	f := newFixture(t, Options{DisconnectGrace: 5 * time.Second})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"}, domain.Member{StreamID: "s2", UUID: "u2"})
	waiting := f.peer("s2")
	live := f.offer("s1", core.Offer{SDP: "o", Session: "sess-1", UUID: "u1"})
	f.emit(core.MediaEvent{Key: live.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityConnected})

	f.m.handleMessage(core.RoomListing{})
	assert.Equal(t, []domain.PeerState{domain.StateAwaitingOffer, domain.StateCleanedUp}, waiting.History())
	assert.Equal(t, domain.StateDisconnected, live.State())

	f.clock.Advance(6 * time.Second)
	f.engine.EXPECT().Release(live.Handle)
	f.m.sweep()
	assert.Equal(t, domain.StateCleanedUp, live.State())
	assert.Zero(t, f.m.table.Len())
}

func TestNoOrphansAfterCleanup(t *testing.T) {
	f := newFixture(t, Options{DisconnectGrace: time.Second})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")
	h := p.Handle

	vp8 := domain.Track{ID: "v", Kind: domain.KindVideo, Codec: domain.CodecVP8}
	rec := f.recordingMock("s1.mkv")
	rec.EXPECT().Close().Return(nil).Times(1)
	f.engine.EXPECT().AttachRecordingChain(h, vp8, gomock.Any()).Return(rec, nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: vp8})
	require.Equal(t, domain.StateRecording, p.State())

	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventConnectivity, Connectivity: core.ConnectivityLost})
	f.clock.Advance(2 * time.Second)
	f.engine.EXPECT().Release(h)
	f.m.sweep()

	assert.Equal(t, domain.StateCleanedUp, p.State())
	assert.Zero(t, p.LocalICE.Len())
	assert.Zero(t, p.RemoteICE.Len())
	assert.Empty(t, p.Recordings())
	assert.Nil(t, p.Handle)
	assert.Error(t, p.Context().Err())
	assert.EqualValues(t, 1024, f.m.recordedBytes())
}

func TestDuplicateAddIgnored(t *testing.T) {
	f := newFixture(t, Options{})
	f.listing(domain.Member{StreamID: "s1", UUID: "u1"})
	p := f.peer("s1")

	f.m.addStream(domain.Member{StreamID: "s1", UUID: "u1"})
	assert.Same(t, p, f.peer("s1"))
	assert.EqualValues(t, 1, f.m.stats.duplicates)
	assert.EqualValues(t, 1, f.m.status().Duplicates)
}

func TestAmbiguousAwaitingOffer(t *testing.T) {
	cases := []struct {
		name     string
		policy   Policy
		routed   bool
		unrouted int64
	}{
		{"earliest", EarliestPolicy{}, true, 0},
		{"drop", StrictPolicy{}, false, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Policy: tc.policy})
			f.listing(domain.Member{StreamID: "s1"}, domain.Member{StreamID: "s2"})
			first := f.peer("s1")

			if tc.routed {
				h := stubHandle{key: first.Key}
				f.engine.EXPECT().NewSession(gomock.Any(), first.Key, domain.StreamID("s1"), gomock.Any()).Return(h, nil)
				f.engine.EXPECT().SetRemoteDescription(gomock.Any(), h, "o")
			}
			f.m.handleMessage(core.Offer{SDP: "o"})

			assert.EqualValues(t, 1, f.m.stats.anomalies)
			assert.Equal(t, tc.unrouted, f.m.stats.unrouted)
			assert.Equal(t, tc.routed, first.State() == domain.StateNegotiating)
			assert.Equal(t, domain.StateAwaitingOffer, f.peer("s2").State())
		})
	}
}

func TestUnroutedAndStaleAreCounted(t *testing.T) {
	f := newFixture(t, Options{})
	f.m.handleMessage(core.Offer{SDP: "o", Session: "nobody"})
	f.m.handleMessage(core.IceCandidates{List: []domain.ICECandidate{cand("x")}, From: "ghost"})
	assert.EqualValues(t, 2, f.m.stats.unrouted)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.metrics.unrouted.WithLabelValues("offer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.metrics.unrouted.WithLabelValues("candidates")))

	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")
	f.m.handleMessage(core.IceCandidates{List: []domain.ICECandidate{cand("y")}, Session: "sess-9", UUID: "u1"})
	assert.EqualValues(t, 1, f.m.stats.stale)
	assert.Equal(t, domain.SessionID("sess-1"), p.SessionID())
}

func TestRenegotiationKeepsState(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")

	f.engine.EXPECT().SetRemoteDescription(gomock.Any(), p.Handle, "o2")
	f.m.handleMessage(core.Offer{SDP: "o2", Session: "sess-1"})
	f.engine.EXPECT().CreateAnswer(gomock.Any(), p.Handle)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventDescriptionApplied})
	f.signal.EXPECT().TrySend(core.Answer{SDP: "a2", Session: "sess-1", UUID: "u1"}).Return(nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventAnswerCreated, SDP: "a2"})

	assert.Equal(t, domain.StateConnected, p.State())
}

func TestStreamFilterAndVideoAdded(t *testing.T) {
	f := newFixture(t, Options{Streams: []domain.StreamID{"s2", "s3"}})
	f.signal.EXPECT().TrySend(core.PlayRequest{StreamID: "s2"}).Return(nil)
	f.m.handleMessage(core.RoomListing{Members: []domain.Member{{StreamID: "s1"}, {StreamID: "s2"}}})
	assert.Equal(t, 1, f.m.table.Len())

	f.signal.EXPECT().TrySend(core.PlayRequest{StreamID: "s3"}).Return(nil)
	f.m.handleMessage(core.VideoAdded{Member: domain.Member{StreamID: "s3", UUID: "u3"}})
	f.m.handleMessage(core.VideoAdded{Member: domain.Member{StreamID: "s4", UUID: "u4"}})
	assert.Equal(t, 2, f.m.table.Len())
	f.peer("s2")
	f.peer("s3")
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.connected(domain.Member{StreamID: "s1", UUID: "u1"}, "sess-1")
	vp9 := domain.Track{ID: "v", Kind: domain.KindVideo, Codec: domain.CodecVP9}
	rec := f.recordingMock("s1.mkv")
	rec.EXPECT().Close().Return(nil).Times(1)
	f.engine.EXPECT().AttachRecordingChain(p.Handle, vp9, gomock.Any()).Return(rec, nil)
	f.emit(core.MediaEvent{Key: p.Key, Kind: core.EventTrackDiscovered, Track: vp9})

	f.engine.EXPECT().Release(p.Handle)
	f.m.shutdown()
	assert.Equal(t, domain.StateCleanedUp, p.State())
	assert.Zero(t, f.m.table.Len())
	assert.Equal(t, []string{"s1.mkv"}, f.m.summary["s1"].files)
}

func TestRunLoop(t *testing.T) {
	f := newFixture(t, Options{SweepInterval: time.Hour})
	f.signal.EXPECT().TrySend(core.PlayRequest{StreamID: "s1"}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.m.Run(ctx) }()

	require.NoError(t, f.m.Deliver(ctx, core.RoomListing{Members: []domain.Member{{StreamID: "s1", UUID: "u1"}}}))
	require.Eventually(t, func() bool {
		st, err := f.m.Status(ctx)
		return err == nil && st.Counts[domain.StateAwaitingOffer.String()] == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	err := f.m.Deliver(context.Background(), core.Offer{})
	assert.True(t, errors.Is(err, ErrStopped) || err == nil)
	_, err = f.m.Status(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}
