// Package cli implements the sendbit command line client.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/config"
	"github.com/aman162000/sendBIT.ch/internal/ui"
	"github.com/aman162000/sendBIT.ch/internal/version"
)

var (
	flagServer   string
	flagSecure   bool
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagNoRTC    bool
	flagTimeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sendbit",
	Short: "Share files and text with devices on the same network",
	Long: `sendbit discovers other devices behind the same public address through a
signaling server and sends files or text to them, directly over WebRTC when
both sides can, or through the server otherwise.`,
	Version: version.Version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", "", "Signaling server host[:port] (env SERVER)")
	flags.BoolVar(&flagSecure, "secure", false, "Use wss:// (env SECURE)")
	flags.StringVar(&flagSTUN, "stun", "", "Custom STUN server (env STUN_SERVER)")
	flags.StringVar(&flagTURN, "turn", "", "Custom TURN server (env TURN_SERVER)")
	flags.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	flags.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	flags.BoolVar(&flagRelay, "relay", false, "Force TURN relay for direct channels (env FORCE_RELAY)")
	flags.BoolVar(&flagNoRTC, "no-rtc", false, "Send everything through the signaling server (env NO_RTC)")
	flags.DurationVar(&flagTimeout, "timeout", 30*time.Second, "How long to wait for a peer")
}

// loadConfig merges the persistent flags the user actually set into the
// environment-backed configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := config.Options{
		Server:     flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	}
	flags := cmd.Flags()
	if flags.Changed("secure") {
		opts.Secure = &flagSecure
	}
	if flags.Changed("relay") {
		opts.ForceRelay = &flagRelay
	}
	if flags.Changed("no-rtc") {
		opts.DisableRTC = &flagNoRTC
	}
	return config.Load(opts)
}

// Execute runs the root command. Interrupts cancel the command context so
// connections are closed cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
