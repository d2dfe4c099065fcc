package transfer

import (
	"errors"
	"io"
)

// FileChunker reads a file in chunks and hands them out one partition at a
// time. No chunk crosses a partition boundary, so every partition except
// the last is exactly partitionSize bytes.
type FileChunker struct {
	r    io.ReaderAt
	size int64

	chunkSize     int64
	partitionSize int64

	offset         int64
	partitionBytes int64

	onChunk        func(chunk []byte) error
	onPartitionEnd func(offset int64) error
}

// NewFileChunker creates a chunker with the default chunk and partition
// sizes.
func NewFileChunker(r io.ReaderAt, size int64, onChunk func([]byte) error, onPartitionEnd func(int64) error) *FileChunker {
	return &FileChunker{
		r:              r,
		size:           size,
		chunkSize:      ChunkSize,
		partitionSize:  PartitionSize,
		onChunk:        onChunk,
		onPartitionEnd: onPartitionEnd,
	}
}

// NextPartition sends chunks until the partition is full or the file ends.
// A full partition that is not the end of the file is reported through
// onPartitionEnd, after which the chunker waits for the next call.
func (c *FileChunker) NextPartition() error {
	c.partitionBytes = 0

	for !c.IsFileEnd() {
		n := min(c.chunkSize, c.partitionSize-c.partitionBytes, c.size-c.offset)

		buf := make([]byte, n)
		read, err := c.r.ReadAt(buf, c.offset)
		if err != nil && !(errors.Is(err, io.EOF) && int64(read) == n) {
			return NewError("read chunk", err)
		}

		c.offset += n
		c.partitionBytes += n
		if err := c.onChunk(buf); err != nil {
			return err
		}

		if c.IsFileEnd() {
			return nil
		}
		if c.isPartitionEnd() {
			return c.onPartitionEnd(c.offset)
		}
	}
	return nil
}

func (c *FileChunker) isPartitionEnd() bool {
	return c.partitionBytes >= c.partitionSize
}

// IsFileEnd reports whether every byte has been handed out.
func (c *FileChunker) IsFileEnd() bool {
	return c.offset >= c.size
}

// Offset is the number of bytes handed out so far.
func (c *FileChunker) Offset() int64 {
	return c.offset
}

// Progress is the fraction of the file handed out, 1 for empty files.
func (c *FileChunker) Progress() float64 {
	if c.size == 0 {
		return 1
	}
	return float64(c.offset) / float64(c.size)
}
