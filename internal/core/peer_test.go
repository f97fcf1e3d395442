package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/roomrec/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecording struct {
	path   string
	closed int
}

func (r *stubRecording) Path() string        { return r.path }
func (r *stubRecording) BytesWritten() int64 { return 0 }
func (r *stubRecording) Close() error {
	r.closed++
	return nil
}

func newTestPeer() *PeerSession {
	return NewPeerSession(context.Background(), 1, domain.Member{StreamID: "s1", UUID: "u1"}, time.Unix(100, 0))
}

func TestPeerHappyPath(t *testing.T) {
	p := newTestPeer()
	require.Equal(t, domain.StateAwaitingOffer, p.State())

	for _, s := range []domain.PeerState{
		domain.StateNegotiating,
		domain.StateAnswered,
		domain.StateConnected,
		domain.StateRecording,
		domain.StateDisconnected,
		domain.StateCleanedUp,
	} {
		require.NoError(t, p.Transition(s), "to %s", s)
	}
	assert.True(t, p.State().Terminal())
	assert.Len(t, p.History(), 7)
}

func TestPeerRejectsBackwardsTransitions(t *testing.T) {
	cases := []struct {
		name string
		path []domain.PeerState
		bad  domain.PeerState
	}{
		{"skip answer", []domain.PeerState{domain.StateNegotiating}, domain.StateConnected},
		{"failed never connects", []domain.PeerState{domain.StateFailed}, domain.StateConnected},
		{"cleaned up is terminal", []domain.PeerState{domain.StateFailed, domain.StateCleanedUp}, domain.StateFailed},
		{"no revisit negotiating", []domain.PeerState{domain.StateNegotiating, domain.StateAnswered}, domain.StateNegotiating},
		{"connected leaves via disconnect", []domain.PeerState{domain.StateNegotiating, domain.StateAnswered, domain.StateConnected}, domain.StateCleanedUp},
		{"reconnecting only from disconnected", []domain.PeerState{domain.StateNegotiating}, domain.StateReconnecting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPeer()
			for _, s := range tc.path {
				require.NoError(t, p.Transition(s))
			}
			err := p.Transition(tc.bad)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
		})
	}
}

func TestPeerFailedReachableFromAnyNonTerminal(t *testing.T) {
	for _, s := range domain.AllStates {
		if s == domain.StateFailed || s == domain.StateCleanedUp {
			continue
		}
		assert.True(t, CanTransition(s, domain.StateFailed), s.String())
	}
	assert.False(t, CanTransition(domain.StateCleanedUp, domain.StateFailed))
}

func TestPeerBindSessionOnce(t *testing.T) {
	p := newTestPeer()

	bound, err := p.BindSession("")
	require.NoError(t, err)
	assert.False(t, bound)

	bound, err = p.BindSession("sess-1")
	require.NoError(t, err)
	assert.True(t, bound)

	bound, err = p.BindSession("sess-1")
	require.NoError(t, err)
	assert.False(t, bound)

	_, err = p.BindSession("sess-2")
	assert.ErrorIs(t, err, ErrSessionConflict)
	assert.Equal(t, domain.SessionID("sess-1"), p.SessionID())
}

func TestPeerIdle(t *testing.T) {
	p := newTestPeer()
	start := p.LastActivity
	assert.False(t, p.Idle(start.Add(5*time.Second), 10*time.Second))
	assert.True(t, p.Idle(start.Add(11*time.Second), 10*time.Second))

	p.Touch(start.Add(11 * time.Second))
	assert.False(t, p.Idle(start.Add(12*time.Second), 10*time.Second))

	require.NoError(t, p.Transition(domain.StateNegotiating))
	require.NoError(t, p.Transition(domain.StateAnswered))
	require.NoError(t, p.Transition(domain.StateConnected))
	assert.False(t, p.Idle(start.Add(time.Hour), 10*time.Second))
}

func TestPeerReleaseLeavesNothingBehind(t *testing.T) {
	p := newTestPeer()
	p.LocalICE.Push(domain.ICECandidate{Candidate: "a"})
	p.RemoteICE.Push(domain.ICECandidate{Candidate: "b"})
	p.DeferTrack(domain.Track{ID: "v", Kind: domain.KindVideo, Codec: domain.CodecVP8})
	rec := &stubRecording{path: "x.mkv"}
	p.AddRecording(rec)

	p.Release()

	assert.Equal(t, 0, p.LocalICE.Len())
	assert.Equal(t, 0, p.RemoteICE.Len())
	assert.Empty(t, p.Recordings())
	assert.Empty(t, p.TakeDeferredTracks())
	assert.Equal(t, 1, rec.closed)
	assert.Error(t, p.Context().Err())
}

func TestPeerAddMediaDedupes(t *testing.T) {
	p := newTestPeer()
	v := domain.Track{ID: "v", Kind: domain.KindVideo, Codec: domain.CodecH264}
	assert.True(t, p.AddMedia(v))
	assert.False(t, p.AddMedia(v))
	assert.True(t, p.AddMedia(domain.Track{ID: "a", Kind: domain.KindAudio, Codec: domain.CodecOpus}))
	assert.Len(t, p.Media(), 2)
}
