package transfer

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestChunkerPartitions(t *testing.T) {
	data := randomBytes(t, 2_500_000)

	var (
		partitions []int64
		current    int64
		sizes      []int64
		out        bytes.Buffer
	)
	c := NewFileChunker(bytes.NewReader(data), int64(len(data)),
		func(chunk []byte) error {
			assert.LessOrEqual(t, len(chunk), ChunkSize)
			current += int64(len(chunk))
			out.Write(chunk)
			return nil
		},
		func(offset int64) error {
			partitions = append(partitions, offset)
			return nil
		},
	)

	for !c.IsFileEnd() {
		current = 0
		require.NoError(t, c.NextPartition())
		sizes = append(sizes, current)
	}

	assert.Equal(t, []int64{1_000_000, 1_000_000, 500_000}, sizes)
	assert.Equal(t, []int64{1_000_000, 2_000_000}, partitions)
	assert.Equal(t, data, out.Bytes())
	assert.Equal(t, 1.0, c.Progress())
}

func TestChunkerStopsAtPartition(t *testing.T) {
	data := randomBytes(t, 1_500_000)

	var chunks int
	c := NewFileChunker(bytes.NewReader(data), int64(len(data)),
		func([]byte) error { chunks++; return nil },
		func(int64) error { return nil },
	)

	require.NoError(t, c.NextPartition())
	assert.Equal(t, 16, chunks)
	assert.Equal(t, int64(1_000_000), c.Offset())
	assert.False(t, c.IsFileEnd())
}

func TestChunkerExactMultipleHasNoTrailingPartition(t *testing.T) {
	data := randomBytes(t, 2*PartitionSize)

	var partitions []int64
	c := NewFileChunker(bytes.NewReader(data), int64(len(data)),
		func([]byte) error { return nil },
		func(offset int64) error { partitions = append(partitions, offset); return nil },
	)
	for !c.IsFileEnd() {
		require.NoError(t, c.NextPartition())
	}
	assert.Equal(t, []int64{PartitionSize}, partitions)
}

func TestChunkerEmptyFile(t *testing.T) {
	var chunks int
	c := NewFileChunker(bytes.NewReader(nil), 0,
		func([]byte) error { chunks++; return nil },
		func(int64) error { return nil },
	)
	require.NoError(t, c.NextPartition())
	assert.Zero(t, chunks)
	assert.True(t, c.IsFileEnd())
	assert.Equal(t, 1.0, c.Progress())
}

func TestChunkerShortRead(t *testing.T) {
	c := NewFileChunker(bytes.NewReader([]byte("abc")), 10,
		func([]byte) error { return nil },
		func(int64) error { return nil },
	)
	assert.Error(t, c.NextPartition())
}
