package relay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

const (
	testPeriod = 30 * time.Second
	waitFor    = 2 * time.Second
)

func newTestHub(t *testing.T) (*Hub, *clock.Mock) {
	t.Helper()

	mClock := clock.NewMock()
	mClock.Set(time.Now())

	h := NewHub(
		WithClock(mClock),
		WithHeartbeatPeriod(testPeriod),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, mClock
}

func joinPeer(t *testing.T, h *Hub, id, origin string, rtc bool) *Peer {
	t.Helper()
	p := NewPeer(h, nil, id, origin, ParseIdentity(id, ""), rtc)
	require.True(t, h.Register(p))
	return p
}

func next(t *testing.T, p *Peer) protocol.Envelope {
	t.Helper()
	select {
	case env, ok := <-p.send:
		require.True(t, ok, "connection of %s closed", p.ID)
		return env
	case <-time.After(waitFor):
		t.Fatalf("no message for %s", p.ID)
	}
	return protocol.Envelope{}
}

// nextOfType skips messages until one of the given type arrives.
func nextOfType(t *testing.T, p *Peer, typ string) protocol.Envelope {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case env, ok := <-p.send:
			require.True(t, ok, "connection of %s closed", p.ID)
			if env.Type == typ {
				return env
			}
		case <-deadline:
			t.Fatalf("no %s message for %s", typ, p.ID)
		}
	}
}

func expectSilence(t *testing.T, h *Hub, p *Peer) {
	t.Helper()
	// Rooms round-trips through the hub loop, so anything queued before it
	// has been handled by the time it returns.
	_, err := h.Rooms(context.Background())
	require.NoError(t, err)
	select {
	case env := <-p.send:
		t.Fatalf("unexpected %s message for %s", env.Type, p.ID)
	default:
	}
}

func expectClosed(t *testing.T, p *Peer) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case _, ok := <-p.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("connection of %s still open", p.ID)
		}
	}
}

// drainJoin consumes the snapshot, probe and display name sent on connect.
func drainJoin(t *testing.T, p *Peer) protocol.PeersPayload {
	t.Helper()
	snap := next(t, p)
	require.Equal(t, protocol.TypePeers, snap.Type)
	require.Equal(t, protocol.TypePing, next(t, p).Type)
	require.Equal(t, protocol.TypeDisplayName, next(t, p).Type)

	var peers protocol.PeersPayload
	require.NoError(t, snap.Decode(&peers))
	return peers
}

func TestJoinSendsSnapshotAndAnnounces(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	peers := drainJoin(t, a)
	assert.Empty(t, peers.Peers)

	b := joinPeer(t, h, NewPeerID(), "10.0.0.1", false)

	joined := next(t, a)
	require.Equal(t, protocol.TypePeerJoined, joined.Type)
	var jp protocol.PeerJoinedPayload
	require.NoError(t, joined.Decode(&jp))
	assert.Equal(t, b.ID, jp.Peer.ID)
	assert.False(t, jp.Peer.RTCSupported)

	peers = drainJoin(t, b)
	require.Len(t, peers.Peers, 1)
	assert.Equal(t, a.ID, peers.Peers[0].ID)
	assert.True(t, peers.Peers[0].RTCSupported)
	assert.NotEmpty(t, peers.Peers[0].Name.DisplayName)
}

func TestDisplayNameMessage(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	env := nextOfType(t, a, protocol.TypeDisplayName)

	var dn protocol.DisplayNamePayload
	require.NoError(t, env.Decode(&dn))
	assert.Equal(t, a.ID, dn.PeerID)
	assert.Equal(t, DisplayName(a.ID), dn.DisplayName)
	assert.Equal(t, "Unknown user", dn.DeviceName)
}

func TestOriginsAreIsolated(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, a)
	c := joinPeer(t, h, NewPeerID(), "192.168.1.7", true)
	assert.Empty(t, drainJoin(t, c).Peers)

	expectSilence(t, h, a)

	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, rooms["10.0.0.1"])
	assert.Equal(t, []string{c.ID}, rooms["192.168.1.7"])
}

func TestRelayRewritesSender(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, a)
	b := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, b)
	next(t, a) // peer-joined

	h.Deliver(a, []byte(`{"type":"offer","to":"`+b.ID+`","sender":"forged","payload":{"sdp":"v=0"}}`))

	got := next(t, b)
	assert.Equal(t, protocol.TypeOffer, got.Type)
	assert.Equal(t, a.ID, got.Sender)
	assert.Empty(t, got.To)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(got.Payload))
}

func TestRelayStaysInsideRoom(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, a)
	c := joinPeer(t, h, NewPeerID(), "10.0.0.2", true)
	drainJoin(t, c)

	h.Deliver(a, []byte(`{"type":"offer","to":"`+c.ID+`","payload":{}}`))
	expectSilence(t, h, c)
}

func TestMalformedAndUnknownAreDropped(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, a)
	b := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, b)
	next(t, a)

	h.Deliver(a, []byte(`{{{`))
	h.Deliver(a, []byte(`{"to":"`+b.ID+`"}`))
	h.Deliver(a, []byte(`{"type":"offer","to":"nobody"}`))
	h.Deliver(a, []byte(`{"type":"pong","to":"`+b.ID+`"}`))

	expectSilence(t, h, a)
	expectSilence(t, h, b)

	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms["10.0.0.1"], 2)
}

func TestLeaveNotifiesAndRemovesRoom(t *testing.T) {
	h, _ := newTestHub(t)

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, a)
	b := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, b)
	next(t, a)

	h.Unregister(a)
	expectClosed(t, a)

	left := next(t, b)
	require.Equal(t, protocol.TypePeerLeft, left.Type)
	var lp protocol.PeerLeftPayload
	require.NoError(t, left.Decode(&lp))
	assert.Equal(t, a.ID, lp.PeerID)

	h.Deliver(b, []byte(`{"type":"disconnect"}`))
	expectClosed(t, b)

	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestReconnectReplacesStaleConnection(t *testing.T) {
	h, _ := newTestHub(t)

	id := NewPeerID()
	old := joinPeer(t, h, id, "10.0.0.1", true)
	drainJoin(t, old)
	b := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, b)
	next(t, old)

	fresh := joinPeer(t, h, id, "10.0.0.1", true)
	expectClosed(t, old)
	assert.Equal(t, protocol.TypePeerLeft, next(t, b).Type)
	assert.Equal(t, protocol.TypePeerJoined, next(t, b).Type)
	require.Len(t, drainJoin(t, fresh).Peers, 1)

	// The stale socket's read pump exiting must not evict the new one.
	h.Unregister(old)
	expectSilence(t, h, b)

	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{id, b.ID}, rooms["10.0.0.1"])
}

func TestHeartbeatEvictsSilentPeer(t *testing.T) {
	h, mClock := newTestHub(t)

	silent := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, silent)
	alive := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	drainJoin(t, alive)
	next(t, silent)

	pong := []byte(`{"type":"pong"}`)
	h.Deliver(alive, pong)

	// Probes keep coming while the silence is within two periods.
	for i := 0; i < 2; i++ {
		mClock.Add(testPeriod)
		assert.Equal(t, protocol.TypePing, next(t, silent).Type)
		assert.Equal(t, protocol.TypePing, next(t, alive).Type)
		h.Deliver(alive, pong)
	}

	mClock.Add(testPeriod)
	expectClosed(t, silent)

	// One more period: alive is probed again and the eviction was announced
	// exactly once.
	mClock.Add(testPeriod)
	var (
		pings int
		left  []protocol.PeerLeftPayload
	)
	deadline := time.After(waitFor)
	for pings < 2 {
		select {
		case env := <-alive.send:
			switch env.Type {
			case protocol.TypePing:
				pings++
			case protocol.TypePeerLeft:
				var lp protocol.PeerLeftPayload
				require.NoError(t, env.Decode(&lp))
				left = append(left, lp)
			}
		case <-deadline:
			t.Fatalf("alive got %d pings after the eviction", pings)
		}
	}
	expectSilence(t, h, alive)
	assert.Equal(t, []protocol.PeerLeftPayload{{PeerID: silent.ID}}, left)

	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{alive.ID}, rooms["10.0.0.1"])
}

func TestShutdownClosesPeers(t *testing.T) {
	mClock := clock.NewMock()
	h := NewHub(WithClock(mClock), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	a := joinPeer(t, h, NewPeerID(), "10.0.0.1", true)
	cancel()
	<-stopped

	expectClosed(t, a)
	assert.False(t, h.Register(NewPeer(h, nil, NewPeerID(), "10.0.0.1", protocol.IdentityInfo{}, true)))
}
