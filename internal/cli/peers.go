package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/signaling"
	"github.com/aman162000/sendBIT.ch/internal/ui"
)

var peersCmd = &cobra.Command{
	Use:     "peers",
	Aliases: []string{"ls"},
	Short:   "List devices on the same network",
	Args:    cobra.NoArgs,
	RunE:    listPeers,
}

func init() {
	rootCmd.AddCommand(peersCmd)
}

// roster only watches room presence. It never opens channels.
type roster struct {
	self  chan protocol.DisplayNamePayload
	peers chan []protocol.PeerInfo
}

var _ signaling.Handler = (*roster)(nil)

func (r *roster) HandleConnected() {}
func (r *roster) HandleDisconnected(time.Duration) {}
func (r *roster) HandlePeerJoined(protocol.PeerInfo) {}
func (r *roster) HandlePeerLeft(string) {}
func (r *roster) HandleSignal(protocol.Envelope) {}
func (r *roster) HandleFrame(string, protocol.Frame) {}

func (r *roster) HandleDisplayName(p protocol.DisplayNamePayload) {
	select {
	case r.self <- p:
	default:
	}
}

func (r *roster) HandlePeers(peers []protocol.PeerInfo) {
	select {
	case r.peers <- peers:
	default:
	}
}

func listPeers(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stop := ui.RunSpinner("Connecting to " + cfg.Server + "...")
	defer stop()

	ctx := cmd.Context()
	client := signaling.NewClient(cfg.WebSocketURL())
	r := &roster{
		self:  make(chan protocol.DisplayNamePayload, 1),
		peers: make(chan []protocol.PeerInfo, 1),
	}
	go client.Run(ctx, r)
	defer client.Close()

	var list []protocol.PeerInfo
	select {
	case list = <-r.peers:
	case <-time.After(flagTimeout):
		return fmt.Errorf("signaling server did not answer within %s", flagTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	stop()

	// The relay sends the snapshot before our own name; give it a moment.
	select {
	case self := <-r.self:
		fmt.Println(ui.IdentityView(self.DisplayName, self.DeviceName))
	case <-time.After(time.Second):
	}

	fmt.Println(ui.PeerTableView(list, !cfg.DisableRTC))
	return nil
}
