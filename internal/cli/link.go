package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aman162000/sendBIT.ch/internal/config"
	"github.com/aman162000/sendBIT.ch/internal/peers"
	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/signaling"
	"github.com/aman162000/sendBIT.ch/internal/webrtc"
)

var (
	ErrNoPeer        = errors.New("no matching peer found")
	ErrAmbiguousPeer = errors.New("more than one peer on this network, pick one with --to")
	ErrPeerLeft      = errors.New("peer left before the transfer finished")
)

// link is a running relay connection with its peer manager.
type link struct {
	client  *signaling.Client
	manager *peers.Manager
	cancel  context.CancelFunc
	done    chan error
}

// connect starts the relay client in the background. events are wired to
// the manager as given.
func connect(ctx context.Context, cfg *config.Config, events peers.Events) *link {
	client := signaling.NewClient(cfg.WebSocketURL())
	manager := peers.NewManager(client, events, peers.Options{
		RTCSupported: !cfg.DisableRTC,
		WebRTC:       webrtc.Options{Config: webrtc.ICEConfiguration(cfg)},
	})

	ctx, cancel := context.WithCancel(ctx)
	l := &link{
		client:  client,
		manager: manager,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() {
		l.done <- client.Run(ctx, manager)
	}()
	return l
}

// Close leaves the room and waits briefly for the connection to wind down.
func (l *link) Close() {
	l.manager.Close()
	l.client.Close()
	select {
	case <-l.done:
	case <-time.After(2 * time.Second):
	}
	l.cancel()
}

// resolvePeer picks the peer matching want by id or display name. An empty
// want matches the only peer there is.
func resolvePeer(known []protocol.PeerInfo, want string) (protocol.PeerInfo, error) {
	if want == "" {
		switch len(known) {
		case 0:
			return protocol.PeerInfo{}, ErrNoPeer
		case 1:
			return known[0], nil
		}
		return protocol.PeerInfo{}, ErrAmbiguousPeer
	}

	var matches []protocol.PeerInfo
	for _, p := range known {
		if p.ID == want {
			return p, nil
		}
		if strings.EqualFold(p.Name.DisplayName, want) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return protocol.PeerInfo{}, ErrNoPeer
	case 1:
		return matches[0], nil
	}
	return protocol.PeerInfo{}, fmt.Errorf("%w: %d devices are called %q", ErrAmbiguousPeer, len(matches), want)
}

// waitForPeer blocks until the target is reachable through the manager.
// ready fires on each room snapshot, added on each new channel.
func waitForPeer(ctx context.Context, m *peers.Manager, ready, added <-chan struct{}, want string, timeout time.Duration) (protocol.PeerInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-ready:
	case <-deadline.C:
		return protocol.PeerInfo{}, fmt.Errorf("signaling server did not answer within %s", timeout)
	case <-ctx.Done():
		return protocol.PeerInfo{}, ctx.Err()
	}

	for {
		p, err := resolvePeer(m.Peers(), want)
		if err == nil || errors.Is(err, ErrAmbiguousPeer) {
			return p, err
		}

		select {
		case <-added:
		case <-deadline.C:
			return protocol.PeerInfo{}, err
		case <-ctx.Done():
			return protocol.PeerInfo{}, ctx.Err()
		}
	}
}

// wake does a non-blocking send on a wakeup channel.
func wake(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
