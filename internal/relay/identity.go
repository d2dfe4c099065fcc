package relay

import (
	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
)

const unknownDevice = "Unknown user"

// NewPeerID returns a fresh 128-bit identifier in canonical UUID form.
func NewPeerID() string {
	return uuid.NewString()
}

// ValidPeerID reports whether id looks like something NewPeerID produced.
// Cookies carrying anything else are ignored and a new id is issued.
func ValidPeerID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// ParseIdentity derives the public device description from a User-Agent
// header. The display name is keyed by the peer id.
func ParseIdentity(id, userAgent string) protocol.IdentityInfo {
	ua := useragent.Parse(userAgent)

	info := protocol.IdentityInfo{
		Model:       ua.Device,
		OS:          ua.OS,
		Browser:     ua.Name,
		Type:        deviceType(ua),
		DisplayName: DisplayName(id),
	}

	switch {
	case info.Model != "":
		info.DeviceName = info.Model
	case info.Browser != "":
		info.DeviceName = info.Browser
	default:
		info.DeviceName = unknownDevice
	}
	return info
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Bot:
		return "bot"
	case ua.Desktop:
		return "desktop"
	}
	return ""
}
