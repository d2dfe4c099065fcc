package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/config"
	"github.com/aman162000/sendBIT.ch/internal/logging"
	"github.com/aman162000/sendBIT.ch/internal/relay"
	"github.com/aman162000/sendBIT.ch/internal/server"
	"github.com/aman162000/sendBIT.ch/internal/version"
)

var (
	flagPort       int
	flagHeartbeat  time.Duration
	flagTrustProxy bool
	flagOrigins    []string
)

var rootCmd = &cobra.Command{
	Use:     "sendbit-server",
	Short:   "Signaling relay for sendbit peers on the same network",
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := config.ServerOptions{
			Port:            flagPort,
			HeartbeatPeriod: flagHeartbeat,
			AllowedOrigins:  flagOrigins,
		}
		if cmd.Flags().Changed("trust-proxy") {
			opts.TrustProxy = &flagTrustProxy
		}

		cfg, err := config.LoadServer(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Listen port (env PORT, default 3000)")
	rootCmd.Flags().DurationVar(&flagHeartbeat, "heartbeat", 0, "Liveness probe interval (env HEARTBEAT_PERIOD, default 30s)")
	rootCmd.Flags().BoolVar(&flagTrustProxy, "trust-proxy", false, "Group peers by X-Forwarded-For (env TRUST_PROXY)")
	rootCmd.Flags().StringSliceVar(&flagOrigins, "allowed-origin", nil, "Allowed browser origins (env ALLOWED_ORIGINS, default any)")
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	hub := relay.NewHub(relay.WithHeartbeatPeriod(cfg.HeartbeatPeriod))
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(hub, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting signaling server", "addr", srv.Addr, "heartbeat", cfg.HeartbeatPeriod, "trust_proxy", cfg.TrustProxy)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("signaling server stopped")
	return nil
}

func main() {
	logging.Init(slog.LevelInfo)

	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
