// Package config resolves runtime settings for the client and the relay.
//
// Every value is taken from the first source that sets it:
//  1. CLI flags (passed via Options)
//  2. Environment variables
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Client defaults
const (
	DefaultServer = "localhost:3000"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Relay endpoints. Clients that can open direct channels connect to the
// first, everyone else to the second.
const (
	PathDirect   = "/server/webrtc"
	PathFallback = "/server/fallback"
)

// Config holds client configuration.
type Config struct {
	// Server is the relay host[:port].
	Server string

	// Secure selects wss instead of ws.
	Secure bool

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts ICE to TURN candidates when a TURN server is set.
	ForceRelay bool

	// DisableRTC makes this client advertise itself as relay-only.
	DisableRTC bool
}

// Options for loading config with CLI flag overrides. Zero values mean
// "not set on the command line".
type Options struct {
	Server     string
	Secure     *bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay *bool
	DisableRTC *bool
}

// Load resolves the client configuration.
func Load(opts Options) (*Config, error) {
	secure, err := boolSetting(opts.Secure, "SECURE", false)
	if err != nil {
		return nil, err
	}
	forceRelay, err := boolSetting(opts.ForceRelay, "FORCE_RELAY", false)
	if err != nil {
		return nil, err
	}
	disableRTC, err := boolSetting(opts.DisableRTC, "NO_RTC", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:     stringSetting(opts.Server, "SERVER", DefaultServer),
		Secure:     secure,
		STUNServer: stringSetting(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: stringSetting(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   stringSetting(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   stringSetting(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay: forceRelay,
		DisableRTC: disableRTC,
	}

	if strings.Contains(cfg.Server, "/") {
		return nil, fmt.Errorf("server %q: expected host[:port] without scheme or path", cfg.Server)
	}
	return cfg, nil
}

// WebSocketURL returns the relay endpoint matching this client's
// capabilities.
func (c *Config) WebSocketURL() string {
	u := url.URL{Scheme: "ws", Host: c.Server, Path: PathDirect}
	if c.Secure {
		u.Scheme = "wss"
	}
	if c.DisableRTC {
		u.Path = PathFallback
	}
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func stringSetting(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func boolSetting(flag *bool, env string, def bool) (bool, error) {
	if flag != nil {
		return *flag, nil
	}
	if v := os.Getenv(env); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%s: %w", env, err)
		}
		return b, nil
	}
	return def, nil
}
