package transfer

import (
	"bytes"
)

// ReceivedFile is a fully reassembled incoming file.
type ReceivedFile struct {
	Name string
	Mime string
	Size int64
	Data []byte
}

// FileDigester reassembles chunks in arrival order for the file announced
// by a header.
type FileDigester struct {
	header   Header
	buf      bytes.Buffer
	received int64
}

// NewFileDigester prepares an empty accumulator for h.
func NewFileDigester(h Header) *FileDigester {
	if h.Mime == "" {
		h.Mime = DefaultMime
	}
	d := &FileDigester{header: h}
	if h.Size > 0 {
		d.buf.Grow(int(min(h.Size, 64<<20)))
	}
	return d
}

// Unchunk appends a chunk. It returns true once the declared size has been
// reached. A chunk that would grow the file past its declared size is
// rejected and leaves the digester unchanged.
func (d *FileDigester) Unchunk(chunk []byte) (bool, error) {
	if d.received+int64(len(chunk)) > d.header.Size {
		return false, NewFileError("unchunk", d.header.Name, ErrChunkOverflow)
	}
	d.buf.Write(chunk)
	d.received += int64(len(chunk))
	return d.Done(), nil
}

// Done reports whether the declared size has been received.
func (d *FileDigester) Done() bool {
	return d.received >= d.header.Size
}

// Progress is bytesReceived / size, or 1 when the file is empty.
func (d *FileDigester) Progress() float64 {
	if d.header.Size == 0 {
		return 1
	}
	return float64(d.received) / float64(d.header.Size)
}

// Received returns the byte count so far.
func (d *FileDigester) Received() int64 {
	return d.received
}

// Header returns the header the digester was created with, mime defaulted.
func (d *FileDigester) Header() Header {
	return d.header
}

// File returns the reassembled file.
func (d *FileDigester) File() ReceivedFile {
	return ReceivedFile{
		Name: d.header.Name,
		Mime: d.header.Mime,
		Size: d.header.Size,
		Data: d.buf.Bytes(),
	}
}
