package transfer

import (
	"sync"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// captureChannel records frames and lets tests drive lifecycle events.
type captureChannel struct {
	peer string

	mu       sync.Mutex
	open     bool
	frames   []protocol.Frame
	refresh  int
	fail     error
	handlers protocol.ChannelHandlers
}

func newCaptureChannel(peer string) *captureChannel {
	return &captureChannel{peer: peer, open: true}
}

func (c *captureChannel) PeerID() string { return c.peer }

func (c *captureChannel) SetHandlers(h protocol.ChannelHandlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

func (c *captureChannel) Send(f protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrChannelNotOpen
	}
	if c.fail != nil {
		return c.fail
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *captureChannel) Refresh() {
	c.mu.Lock()
	c.refresh++
	c.mu.Unlock()
}

func (c *captureChannel) Close() error { return nil }

// take returns and clears the recorded frames.
func (c *captureChannel) take() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.frames
	c.frames = nil
	return out
}

func (c *captureChannel) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	h := c.handlers
	c.mu.Unlock()

	if open && h.OnOpen != nil {
		h.OnOpen()
	}
	if !open && h.OnClose != nil {
		h.OnClose()
	}
}

// pipeChannel is one end of an in-memory ordered channel pair. Frames are
// delivered on a separate goroutine, like a real transport.
type pipeChannel struct {
	peer  string
	inbox chan protocol.Frame
	other *pipeChannel

	mu       sync.Mutex
	handlers protocol.ChannelHandlers
}

func newPipe(a, b string) (*pipeChannel, *pipeChannel) {
	// Each end is named after the peer it talks to.
	toB := &pipeChannel{peer: b, inbox: make(chan protocol.Frame, 4096)}
	toA := &pipeChannel{peer: a, inbox: make(chan protocol.Frame, 4096)}
	toB.other, toA.other = toA, toB
	return toB, toA
}

func (p *pipeChannel) start() {
	go func() {
		for f := range p.inbox {
			p.mu.Lock()
			onFrame := p.handlers.OnFrame
			p.mu.Unlock()
			if onFrame != nil {
				onFrame(f)
			}
		}
	}()
}

func (p *pipeChannel) PeerID() string { return p.peer }

func (p *pipeChannel) SetHandlers(h protocol.ChannelHandlers) {
	p.mu.Lock()
	p.handlers = h
	p.mu.Unlock()
}

func (p *pipeChannel) Send(f protocol.Frame) error {
	data := append([]byte(nil), f.Data...)
	p.other.inbox <- protocol.Frame{Binary: f.Binary, Data: data}
	return nil
}

func (p *pipeChannel) IsOpen() bool { return true }
func (p *pipeChannel) Refresh()     {}
func (p *pipeChannel) Close() error { return nil }
