package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman162000/sendBIT.ch/internal/config"
	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/relay"
	"github.com/aman162000/sendBIT.ch/internal/server"
)

const waitFor = 5 * time.Second

type relayedFrame struct {
	from  string
	frame protocol.Frame
}

type recorder struct {
	connected    chan struct{}
	disconnected chan time.Duration
	names        chan protocol.DisplayNamePayload
	peers        chan []protocol.PeerInfo
	joined       chan protocol.PeerInfo
	left         chan string
	signals      chan protocol.Envelope
	frames       chan relayedFrame
}

func newRecorder() *recorder {
	return &recorder{
		connected:    make(chan struct{}, 16),
		disconnected: make(chan time.Duration, 16),
		names:        make(chan protocol.DisplayNamePayload, 16),
		peers:        make(chan []protocol.PeerInfo, 16),
		joined:       make(chan protocol.PeerInfo, 16),
		left:         make(chan string, 16),
		signals:      make(chan protocol.Envelope, 16),
		frames:       make(chan relayedFrame, 64),
	}
}

func (r *recorder) HandleConnected()                                { r.connected <- struct{}{} }
func (r *recorder) HandleDisconnected(d time.Duration)              { r.disconnected <- d }
func (r *recorder) HandleDisplayName(p protocol.DisplayNamePayload) { r.names <- p }
func (r *recorder) HandlePeers(p []protocol.PeerInfo)               { r.peers <- p }
func (r *recorder) HandlePeerJoined(p protocol.PeerInfo)            { r.joined <- p }
func (r *recorder) HandlePeerLeft(id string)                        { r.left <- id }
func (r *recorder) HandleSignal(env protocol.Envelope)              { r.signals <- env }
func (r *recorder) HandleFrame(from string, f protocol.Frame)       { r.frames <- relayedFrame{from, f} }

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func startRelay(t *testing.T, heartbeat time.Duration) (*relay.Hub, string) {
	t.Helper()

	hub := relay.NewHub(relay.WithHeartbeatPeriod(heartbeat))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.NewRouter(hub, &config.ServerConfig{HeartbeatPeriod: heartbeat}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startClient(t *testing.T, url string, opts ...Option) (*Client, *recorder) {
	t.Helper()

	c := NewClient(url, opts...)
	rec := newRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx, rec)
	t.Cleanup(func() {
		c.Close()
		cancel()
	})
	return c, rec
}

func TestClientPresenceAndSignals(t *testing.T) {
	hub, base := startRelay(t, 50*time.Millisecond)

	a, recA := startClient(t, base+config.PathDirect)
	recv(t, recA.connected)
	assert.Empty(t, recv(t, recA.peers))
	nameA := recv(t, recA.names)
	assert.Equal(t, nameA.PeerID, a.PeerID())

	b, recB := startClient(t, base+config.PathFallback)
	peers := recv(t, recB.peers)
	require.Len(t, peers, 1)
	assert.Equal(t, a.PeerID(), peers[0].ID)
	nameB := recv(t, recB.names)

	joined := recv(t, recA.joined)
	assert.Equal(t, nameB.PeerID, joined.ID)
	assert.False(t, joined.RTCSupported)

	offer, err := protocol.NewEnvelope(protocol.TypeOffer, b.PeerID(), map[string]string{"sdp": "v=0"})
	require.NoError(t, err)
	require.NoError(t, a.Send(offer))

	got := recv(t, recB.signals)
	assert.Equal(t, protocol.TypeOffer, got.Type)
	assert.Equal(t, a.PeerID(), got.Sender)

	// Several heartbeat periods pass; automatic pongs keep both peers in.
	time.Sleep(400 * time.Millisecond)
	rooms, err := hub.Rooms(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.PeerID(), b.PeerID()}, rooms["127.0.0.1"])

	b.Close()
	assert.Equal(t, b.PeerID(), recv(t, recA.left))
}

func TestRelayedChannelOverRelay(t *testing.T) {
	_, base := startRelay(t, time.Minute)

	a, recA := startClient(t, base+config.PathFallback)
	recv(t, recA.names)
	b, recB := startClient(t, base+config.PathFallback)
	recv(t, recB.names)
	recv(t, recA.joined)

	toB := NewRelayedChannel(a, b.PeerID())
	toB.Refresh()
	fromA := NewRelayedChannel(b, a.PeerID())

	var (
		mu  sync.Mutex
		got []protocol.Frame
	)
	fromA.SetHandlers(protocol.ChannelHandlers{OnFrame: func(f protocol.Frame) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	}})
	fromA.Refresh()

	sent := []protocol.Frame{
		{Data: []byte("header")},
		{Binary: true, Data: []byte{0, 1, 2, 255}},
		{Data: []byte("partition")},
	}
	for _, f := range sent {
		require.NoError(t, toB.Send(f))
	}

	for range sent {
		rf := recv(t, recB.frames)
		assert.Equal(t, a.PeerID(), rf.from)
		fromA.Deliver(rf.frame)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sent, got)
}

func TestClientReconnectsWithCookie(t *testing.T) {
	var (
		mu      sync.Mutex
		cookies []string
	)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cookies = append(cookies, r.Header.Get("Cookie"))
		first := len(cookies) == 1
		mu.Unlock()

		header := http.Header{}
		if first {
			header.Set("Set-Cookie", "peerid=abc-123; Path=/")
		}
		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			return
		}
		if first {
			conn.Close()
			return
		}
		go func() {
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)

	c, rec := startClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), WithReconnectDelay(20*time.Millisecond))

	recv(t, rec.connected)
	assert.Equal(t, 20*time.Millisecond, recv(t, rec.disconnected))
	recv(t, rec.connected)

	assert.Equal(t, "abc-123", c.PeerID())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, cookies, 2)
	assert.Empty(t, cookies[0])
	assert.Equal(t, "peerid=abc-123", cookies[1])
}

func TestSendWhileDisconnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/server/webrtc")
	env, _ := protocol.NewEnvelope(protocol.TypePong, "", nil)
	assert.ErrorIs(t, c.Send(env), ErrNotConnected)
}
