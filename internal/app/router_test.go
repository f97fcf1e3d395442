package app

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addPeer(t *testing.T, r *Registry, key core.SessionKey, stream, id string) *core.PeerSession {
	t.Helper()
	p := core.NewPeerSession(context.Background(), key, domain.Member{StreamID: domain.StreamID(stream), UUID: domain.UUID(id)}, time.Unix(int64(key), 0))
	require.NoError(t, r.Add(p))
	return p
}

func TestResolveTiers(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg)
	a := addPeer(t, reg, 1, "cam", "u-a")
	b := addPeer(t, reg, 2, "cam-hd", "")
	c := addPeer(t, reg, 3, "desk", "u-c")
	_, err := c.BindSession("sess-c")
	require.NoError(t, err)
	require.NoError(t, c.Transition(domain.StateNegotiating))

	cases := []struct {
		name    string
		msg     core.Message
		peer    *core.PeerSession
		tier    Tier
		anomaly bool
	}{
		{"session wins over uuid", core.IceCandidates{Session: "sess-c", UUID: "u-a"}, c, TierSession, false},
		{"uuid exact", core.Offer{UUID: "u-a"}, a, TierUUID, false},
		{"from equals uuid", core.IceCandidates{From: "u-c"}, c, TierUUID, false},
		{"longest stream in from", core.Offer{From: "viewer:cam-hd:1"}, b, TierFromHeuristic, false},
		{"short stream in from", core.Offer{From: "cam_1"}, a, TierFromHeuristic, false},
		{"awaiting offer earliest", core.Offer{SDP: "x"}, a, TierAwaitingOffer, true},
		{"candidates never use awaiting", core.IceCandidates{}, nil, TierNone, false},
		{"unknown session falls through", core.Offer{Session: "nope", UUID: "u-c"}, c, TierUUID, false},
		{"other messages are not routed", core.PlayRequest{StreamID: "cam"}, nil, TierNone, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := router.Resolve(tc.msg)
			assert.Same(t, tc.peer, res.Peer)
			assert.Equal(t, tc.tier, res.Tier)
			assert.Equal(t, tc.anomaly, res.Anomaly)
		})
	}
}

func TestResolveFromTieIsAnomaly(t *testing.T) {
	reg := NewRegistry()
	first := addPeer(t, reg, 1, "s1", "")
	addPeer(t, reg, 2, "s2", "")

	res := NewRouter(reg).Resolve(core.Offer{From: "s1+s2"})
	assert.Same(t, first, res.Peer)
	assert.Equal(t, TierFromHeuristic, res.Tier)
	assert.True(t, res.Anomaly)
	assert.Equal(t, 2, res.Candidates)
}

func TestResolveAwaitingSkipsBoundSessions(t *testing.T) {
	reg := NewRegistry()
	a := addPeer(t, reg, 1, "a", "")
	b := addPeer(t, reg, 2, "b", "")
	_, err := a.BindSession("sess-a")
	require.NoError(t, err)

	res := NewRouter(reg).Resolve(core.Offer{})
	assert.Same(t, b, res.Peer)
	assert.False(t, res.Anomaly)
}

func TestResolveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	addPeer(t, reg, 1, "s1", "u1")
	addPeer(t, reg, 2, "s10", "u10")
	router := NewRouter(reg)

	for _, msg := range []core.Message{
		core.Offer{From: "s10-cam"},
		core.IceCandidates{UUID: "u1"},
		core.Offer{},
	} {
		first := router.Resolve(msg)
		second := router.Resolve(msg)
		assert.Equal(t, first, second, "%#v", msg)
	}
}

func TestTierLabels(t *testing.T) {
	assert.Equal(t, "from_substring", TierFromHeuristic.String())
	assert.True(t, TierSession.Exact())
	assert.True(t, TierUUID.Exact())
	assert.False(t, TierAwaitingOffer.Exact())
	assert.Equal(t, "none", Tier(42).String())
}
