package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/transfer"
)

func peer(id, name string) protocol.PeerInfo {
	return protocol.PeerInfo{ID: id, Name: protocol.IdentityInfo{DisplayName: name}}
}

func TestResolvePeer(t *testing.T) {
	_, err := resolvePeer(nil, "")
	assert.ErrorIs(t, err, ErrNoPeer)

	only := []protocol.PeerInfo{peer("a", "Red Owl")}
	p, err := resolvePeer(only, "")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)

	many := []protocol.PeerInfo{peer("a", "Red Owl"), peer("b", "Blue Fox"), peer("c", "Blue Fox")}
	_, err = resolvePeer(many, "")
	assert.ErrorIs(t, err, ErrAmbiguousPeer)

	p, err = resolvePeer(many, "red owl")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)

	p, err = resolvePeer(many, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", p.ID)

	_, err = resolvePeer(many, "Blue Fox")
	assert.ErrorIs(t, err, ErrAmbiguousPeer)

	_, err = resolvePeer(many, "Green Cat")
	assert.ErrorIs(t, err, ErrNoPeer)
}

func TestPeerLabel(t *testing.T) {
	assert.Equal(t, "x", peerLabel(protocol.PeerInfo{ID: "x"}))
	assert.Equal(t, "Red Owl", peerLabel(peer("a", "Red Owl")))

	p := peer("a", "Red Owl")
	p.Name.DeviceName = "Mac Safari"
	assert.Equal(t, "Red Owl (Mac Safari)", peerLabel(p))
}

func TestSaveReceived(t *testing.T) {
	dir := t.TempDir()
	f := transfer.ReceivedFile{Name: "../escape.txt", Data: []byte("data")}

	first, err := saveReceived(dir, f)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), first)

	second, err := saveReceived(dir, f)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape (1).txt"), second)

	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}
