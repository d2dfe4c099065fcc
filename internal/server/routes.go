// Package server exposes the relay over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/aman162000/sendBIT.ch/internal/config"
	"github.com/aman162000/sendBIT.ch/internal/relay"
)

// CookieName carries a client's peer id across reconnects.
const CookieName = "peerid"

// NewRouter wires the health check and both WebSocket endpoints.
func NewRouter(hub *relay.Hub, cfg *config.ServerConfig) http.Handler {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health(hub))
	mux.HandleFunc("GET "+config.PathDirect, ServeWs(hub, upgrader, cfg.TrustProxy))
	mux.HandleFunc("GET "+config.PathFallback, ServeWs(hub, upgrader, cfg.TrustProxy))
	return mux
}

// ServeWs upgrades the request and hands the connection to the hub.
// Connections on a path containing "rtc" are marked as able to open direct
// channels.
func ServeWs(hub *relay.Hub, upgrader *websocket.Upgrader, trustProxy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, header := peerID(r)

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			slog.Debug("failed to upgrade connection", "error", err)
			return
		}

		peer := relay.NewPeer(
			hub,
			conn,
			id,
			relay.OriginKey(r, trustProxy),
			relay.ParseIdentity(id, r.UserAgent()),
			strings.Contains(r.URL.Path, "rtc"),
		)

		if !hub.Register(peer) {
			conn.Close()
			return
		}

		go peer.WritePump()
		go peer.ReadPump()
	}
}

// peerID reuses the id from the peerid cookie or issues a new one, returning
// the Set-Cookie header to send with the upgrade response.
func peerID(r *http.Request) (string, http.Header) {
	if c, err := r.Cookie(CookieName); err == nil && relay.ValidPeerID(c.Value) {
		return c.Value, nil
	}

	id := relay.NewPeerID()
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
	}
	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())
	return id, header
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
	Peers  int    `json:"peers"`
}

// Health reports liveness together with the current room and peer counts.
func Health(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := hub.Rooms(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}

		status := HealthStatus{Status: "ok", Rooms: len(rooms)}
		for _, ids := range rooms {
			status.Peers += len(ids)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}
