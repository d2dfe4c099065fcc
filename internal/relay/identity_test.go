package relay

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPeerIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPeerID()
		assert.True(t, ValidPeerID(id))
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.False(t, ValidPeerID("peerid"))
	assert.False(t, ValidPeerID(""))
}

func TestDisplayNameIsDeterministic(t *testing.T) {
	id := NewPeerID()
	assert.Equal(t, DisplayName(id), DisplayName(id))
	assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, DisplayName(id))
}

func TestParseIdentityFallbacks(t *testing.T) {
	info := ParseIdentity("x", "")
	assert.Equal(t, "Unknown user", info.DeviceName)
	assert.Equal(t, DisplayName("x"), info.DisplayName)

	firefox := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	info = ParseIdentity("x", firefox)
	assert.Equal(t, "Firefox", info.Browser)
	assert.Equal(t, "Firefox", info.DeviceName)
	assert.Equal(t, "Linux", info.OS)
	assert.Equal(t, "desktop", info.Type)

	iphone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	assert.Equal(t, "mobile", ParseIdentity("x", iphone).Type)
}

func TestOriginKey(t *testing.T) {
	cases := []struct {
		name       string
		remote     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"ipv4", "192.168.1.10:5000", "", false, "192.168.1.10"},
		{"loopback v4", "127.0.0.1:5000", "", false, "127.0.0.1"},
		{"loopback other", "127.0.1.1:5000", "", false, "127.0.0.1"},
		{"loopback v6", "[::1]:5000", "", false, "127.0.0.1"},
		{"mapped loopback", "[::ffff:127.0.0.1]:5000", "", false, "127.0.0.1"},
		{"mapped v4", "[::ffff:10.1.2.3]:5000", "", false, "10.1.2.3"},
		{"forwarded ignored", "10.0.0.1:1", "203.0.113.9", false, "10.0.0.1"},
		{"forwarded first entry", "10.0.0.1:1", "203.0.113.9, 10.0.0.1", true, "203.0.113.9"},
		{"forwarded loopback", "10.0.0.1:1", "::1", true, "127.0.0.1"},
		{"forwarded empty", "10.0.0.1:1", " , ", true, "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/server/webrtc", nil)
			r.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, OriginKey(r, tc.trustProxy))
		})
	}
}
