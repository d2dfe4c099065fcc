package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

func TestTransferModel(t *testing.T) {
	m := newTransferModel(ModeReceive)
	start := time.Unix(1000, 0)
	m.now = func() time.Time { return start }

	m.Update(stateUpdate("Receiving from Red Owl"))
	m.Update(fileUpdate{name: "photo.jpg", size: 2048, progress: 0.5})
	m.Update(fileUpdate{name: "notes.txt", progress: 0.25})
	m.Update(fileUpdate{name: "photo.jpg", done: true})

	assert.Len(t, m.files, 2)
	assert.True(t, m.index["photo.jpg"].done)
	assert.Equal(t, 0.25, m.index["notes.txt"].progress)

	view := m.View()
	assert.Contains(t, view, "Receiving from Red Owl")
	assert.Contains(t, view, "photo.jpg")
	assert.Contains(t, view, "100.0%")
	assert.Contains(t, view, " 25.0%")
}

func TestPeerTableView(t *testing.T) {
	peers := []protocol.PeerInfo{
		{ID: "a", Name: protocol.IdentityInfo{DisplayName: "Red Owl", DeviceName: "Linux Firefox"}, RTCSupported: true},
		{ID: "b", Name: protocol.IdentityInfo{DisplayName: "Blue Fox", DeviceName: "iPhone"}},
	}
	view := PeerTableView(peers, true)
	assert.Contains(t, view, "Red Owl")
	assert.Contains(t, view, "direct")
	assert.Contains(t, view, "relayed")

	assert.Contains(t, PeerTableView(nil, true), "No other devices")
}

func TestTransferSummaryView(t *testing.T) {
	s := TransferSummary{
		Status:    "Complete",
		Peer:      "Red Owl",
		Files:     2,
		TotalSize: 2 * 1024 * 1024,
		Duration:  2 * time.Second,
	}
	assert.InDelta(t, 1024*1024, s.Speed(), 1)

	view := TransferSummaryView("Transfer Summary", s)
	assert.Contains(t, view, "Red Owl")
	assert.Contains(t, view, "2.00 MB")
	assert.Contains(t, view, "1.00 MB/s")
	assert.Contains(t, view, "2s")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
