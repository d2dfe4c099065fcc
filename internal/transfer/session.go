package transfer

import (
	"io"
	"log/slog"
	"sync"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

// OutgoingFile is a file queued for sending.
type OutgoingFile struct {
	Name   string
	Mime   string
	Size   int64
	Reader io.ReaderAt
}

// Events are the callbacks a Session reports through. Nil fields are
// skipped. Callbacks run while the session is locked and must not call back
// into it.
type Events struct {
	// FileProgress fires on the receiver for every chunk and on the sender
	// whenever the receiver reports progress.
	FileProgress func(peerID, name string, progress float64)
	FileReceived func(peerID string, f ReceivedFile)
	FileSent     func(peerID, name string)
	TextReceived func(peerID, text string)
	Notify       func(peerID, msg string)
}

// Session runs the transfer protocol with one remote peer over a Channel.
// At most one file is in flight in each direction.
type Session struct {
	ch     protocol.Channel
	peerID string
	events Events
	log    *slog.Logger

	mu           sync.Mutex
	queue        []OutgoingFile
	busy         bool
	current      *OutgoingFile
	chunker      *FileChunker
	digester     *FileDigester
	lastProgress float64
	wantOpen     bool
}

// NewSession binds a session to ch and installs the channel handlers.
func NewSession(ch protocol.Channel, events Events, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		ch:     ch,
		peerID: ch.PeerID(),
		events: events,
		log:    log.With("peer", ch.PeerID()),
	}
	ch.SetHandlers(protocol.ChannelHandlers{
		OnOpen:  s.handleOpen,
		OnFrame: s.HandleFrame,
		OnClose: s.handleClose,
	})
	return s
}

// PeerID identifies the remote side.
func (s *Session) PeerID() string { return s.peerID }

// SendFiles queues files and starts sending if nothing is in flight.
func (s *Session) SendFiles(files ...OutgoingFile) {
	s.mu.Lock()
	defer s.unlock()

	s.queue = append(s.queue, files...)
	if s.busy {
		return
	}
	s.dequeueFile()
}

// SendText sends a text message. It is dropped if the channel is not open.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	defer s.unlock()
	return s.sendControl(MessageTypeText, TextPayload{Text: EncodeText(text)})
}

// Pending returns the number of files queued or in flight.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	if s.current != nil {
		n++
	}
	return n
}

func (s *Session) dequeueFile() {
	if len(s.queue) == 0 {
		s.busy = false
		return
	}
	if !s.ch.IsOpen() {
		// Keep the queue until the channel opens. Asking for it may start
		// a reconnect.
		s.busy = false
		s.wantOpen = true
		return
	}

	s.busy = true
	file := s.queue[0]
	s.queue = s.queue[1:]
	s.sendFile(file)
}

func (s *Session) sendFile(file OutgoingFile) {
	s.current = &file

	mime := file.Mime
	if mime == "" {
		mime = DefaultMime
	}
	if err := s.sendControl(MessageTypeHeader, Header{Name: file.Name, Mime: mime, Size: file.Size}); err != nil {
		s.log.Debug("header not sent", "file", file.Name, "error", err)
		s.queue = append([]OutgoingFile{file}, s.queue...)
		s.current = nil
		s.busy = false
		return
	}

	s.chunker = NewFileChunker(file.Reader, file.Size,
		func(chunk []byte) error {
			return s.ch.Send(protocol.Frame{Binary: true, Data: chunk})
		},
		func(offset int64) error {
			return s.sendControl(MessageTypePartition, PartitionPayload{Offset: offset})
		},
	)
	s.sendNextPartition()
}

func (s *Session) sendNextPartition() {
	if s.chunker == nil || s.chunker.IsFileEnd() {
		return
	}
	if err := s.chunker.NextPartition(); err != nil {
		s.log.Debug("partition not sent", "file", s.current.Name, "error", err)
	}
}

// HandleFrame processes one frame from the remote peer.
func (s *Session) HandleFrame(f protocol.Frame) {
	s.mu.Lock()
	defer s.unlock()

	if f.Binary {
		s.onChunk(f.Data)
		return
	}

	msg, err := ParseMessage(f.Data)
	if err != nil {
		s.log.Debug("dropping control frame", "error", err)
		return
	}

	switch msg.Type {
	case MessageTypeHeader:
		var h Header
		if err := msg.DecodePayload(&h); err != nil {
			s.log.Debug("bad header", "error", err)
			return
		}
		s.onHeader(h)

	case MessageTypePartition:
		var p PartitionPayload
		if err := msg.DecodePayload(&p); err != nil {
			s.log.Debug("bad partition", "error", err)
			return
		}
		if err := s.sendControl(MessageTypePartitionReceived, p); err != nil {
			s.log.Debug("partition ack not sent", "error", err)
		}

	case MessageTypePartitionReceived:
		s.sendNextPartition()

	case MessageTypeProgress:
		var p ProgressPayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		if s.current != nil {
			s.fireProgress(s.current.Name, p.Progress)
		}

	case MessageTypeTransferComplete:
		s.onTransferCompleted()

	case MessageTypeText:
		var p TextPayload
		if err := msg.DecodePayload(&p); err != nil {
			return
		}
		text, err := DecodeText(p.Text)
		if err != nil {
			s.log.Debug("dropping text", "error", err)
			return
		}
		if s.events.TextReceived != nil {
			s.events.TextReceived(s.peerID, text)
		}

	default:
		s.log.Debug("dropping control frame", "error", ErrUnknownMessage, "type", msg.Type)
	}
}

func (s *Session) onHeader(h Header) {
	s.lastProgress = 0
	s.digester = NewFileDigester(h)

	// Nothing follows the header of an empty file.
	if h.Size == 0 {
		s.fireProgress(h.Name, 1)
		s.finishIncoming()
	}
}

func (s *Session) onChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if s.digester == nil {
		s.log.Debug("dropping chunk", "error", ErrChunkBeforeHeader)
		return
	}

	done, err := s.digester.Unchunk(chunk)
	if err != nil {
		s.log.Warn("aborting incoming file", "error", err)
		s.notify("Transfer of " + s.digester.Header().Name + " failed.")
		s.digester = nil
		return
	}

	progress := s.digester.Progress()
	s.fireProgress(s.digester.Header().Name, progress)

	if progress-s.lastProgress >= progressStep {
		s.lastProgress = progress
		if err := s.sendControl(MessageTypeProgress, ProgressPayload{Progress: progress}); err != nil {
			s.log.Debug("progress not sent", "error", err)
		}
	}

	if done {
		s.finishIncoming()
	}
}

func (s *Session) finishIncoming() {
	file := s.digester.File()
	s.digester = nil

	if s.events.FileReceived != nil {
		s.events.FileReceived(s.peerID, file)
	}
	if err := s.sendControl(MessageTypeTransferComplete, nil); err != nil {
		s.log.Debug("completion not sent", "file", file.Name, "error", err)
	}
}

func (s *Session) onTransferCompleted() {
	if s.current == nil {
		return
	}
	name := s.current.Name
	s.fireProgress(name, 1)
	s.current = nil
	s.chunker = nil

	if s.events.FileSent != nil {
		s.events.FileSent(s.peerID, name)
	}
	s.notify("File transfer completed.")
	s.dequeueFile()
}

// handleOpen resumes sending once the channel is (re)opened.
func (s *Session) handleOpen() {
	s.mu.Lock()
	defer s.unlock()
	if !s.busy {
		s.dequeueFile()
	}
}

// handleClose drops the partial incoming file and puts the outgoing one back
// at the head of the queue so it restarts from scratch on the next open.
func (s *Session) handleClose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.digester != nil {
		s.log.Debug("channel closed mid-transfer", "file", s.digester.Header().Name)
		s.digester = nil
	}
	if s.current != nil {
		s.queue = append([]OutgoingFile{*s.current}, s.queue...)
		s.current = nil
		s.chunker = nil
	}
	s.busy = false
}

// unlock releases the session, then asks a closed channel to open. Refresh
// can run OnOpen on the calling goroutine, so it must not hold s.mu.
func (s *Session) unlock() {
	refresh := s.wantOpen
	s.wantOpen = false
	s.mu.Unlock()

	if refresh {
		s.ch.Refresh()
	}
}

func (s *Session) sendControl(t string, payload any) error {
	frame, err := EncodeFrame(t, payload)
	if err != nil {
		return err
	}
	if !s.ch.IsOpen() {
		s.wantOpen = true
		return ErrChannelNotOpen
	}
	return s.ch.Send(frame)
}

func (s *Session) fireProgress(name string, progress float64) {
	if s.events.FileProgress != nil {
		s.events.FileProgress(s.peerID, name, progress)
	}
}

func (s *Session) notify(msg string) {
	if s.events.Notify != nil {
		s.events.Notify(s.peerID, msg)
	}
}
