package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/peers"
	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/ui"
)

const (
	textRetryInterval = 200 * time.Millisecond

	// drainDelay lets a direct channel flush before the connection is torn
	// down.
	drainDelay = 500 * time.Millisecond
)

var flagTextTo string

var textCmd = &cobra.Command{
	Use:   "text <message>",
	Short: "Send a text message to a device on the same network",
	Args:  cobra.MinimumNArgs(1),
	RunE:  sendText,
}

func init() {
	rootCmd.AddCommand(textCmd)
	textCmd.Flags().StringVarP(&flagTextTo, "to", "t", "", "Peer id or display name")
}

func sendText(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	message := strings.Join(args, " ")

	ready := make(chan struct{}, 1)
	added := make(chan struct{}, 1)
	ctx := cmd.Context()
	l := connect(ctx, cfg, peers.Events{
		Peers:     func([]protocol.PeerInfo) { wake(ready) },
		PeerAdded: func(protocol.PeerInfo) { wake(added) },
	})
	defer l.Close()

	stop := ui.RunWaitingSpinner("Looking for the receiver...")
	defer stop()
	target, err := waitForPeer(ctx, l.manager, ready, added, flagTextTo, flagTimeout)
	if err != nil {
		return err
	}

	// A direct channel may still be negotiating; keep trying until it opens.
	deadline := time.Now().Add(flagTimeout)
	ticker := time.NewTicker(textRetryInterval)
	defer ticker.Stop()
	for {
		err = l.manager.SendText(target.ID, message)
		if err == nil || time.Now().After(deadline) {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	stop()
	if err != nil {
		return err
	}

	time.Sleep(drainDelay)
	ui.PrintSuccessf("Message sent to %s", peerLabel(target))
	return nil
}
