package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Relay defaults
const (
	DefaultPort            = 3000
	DefaultHeartbeatPeriod = 30 * time.Second
)

// ServerConfig holds relay configuration.
type ServerConfig struct {
	Port            int
	HeartbeatPeriod time.Duration

	// TrustProxy takes the origin key from X-Forwarded-For.
	TrustProxy bool

	// AllowedOrigins restricts browser WebSocket origins. Empty allows all.
	AllowedOrigins []string
}

// ServerOptions for loading relay config with CLI flag overrides.
type ServerOptions struct {
	Port            int
	HeartbeatPeriod time.Duration
	TrustProxy      *bool
	AllowedOrigins  []string
}

// LoadServer resolves the relay configuration.
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:            opts.Port,
		HeartbeatPeriod: opts.HeartbeatPeriod,
		AllowedOrigins:  opts.AllowedOrigins,
	}

	if cfg.Port == 0 {
		if v := os.Getenv("PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("PORT: %w", err)
			}
			cfg.Port = p
		}
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", cfg.Port)
	}

	if cfg.HeartbeatPeriod == 0 {
		if v := os.Getenv("HEARTBEAT_PERIOD"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("HEARTBEAT_PERIOD: %w", err)
			}
			cfg.HeartbeatPeriod = d
		}
	}
	if cfg.HeartbeatPeriod == 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	if cfg.HeartbeatPeriod < 0 {
		return nil, fmt.Errorf("heartbeat period must be positive, got %s", cfg.HeartbeatPeriod)
	}

	trust, err := boolSetting(opts.TrustProxy, "TRUST_PROXY", false)
	if err != nil {
		return nil, err
	}
	cfg.TrustProxy = trust

	if len(cfg.AllowedOrigins) == 0 {
		if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
				}
			}
		}
	}
	return cfg, nil
}

// Addr is the listen address for net/http.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
