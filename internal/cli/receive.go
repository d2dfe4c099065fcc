package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/peers"
	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/transfer"
	"github.com/aman162000/sendBIT.ch/internal/ui"
	"github.com/aman162000/sendBIT.ch/internal/utils"
)

var (
	flagOutDir string
	flagCount  int
)

var receiveCmd = &cobra.Command{
	Use:     "receive",
	Aliases: []string{"r"},
	Short:   "Stay visible on the network and accept files and text",
	Long: `Join the room for this network and save every file other devices send.
Runs until interrupted, or until --count files have arrived.

Examples:
  sendbit receive
  sendbit receive --out ~/Downloads --count 1`,
	Args: cobra.NoArgs,
	RunE: receive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVarP(&flagOutDir, "out", "o", ".", "Directory to save files in")
	receiveCmd.Flags().IntVarP(&flagCount, "count", "n", 0, "Exit after this many files (0 keeps running)")
}

// saveReceived writes f into dir under a name that does not clash with
// existing files.
func saveReceived(dir string, f transfer.ReceivedFile) (string, error) {
	path := utils.GetUniqueFilename(filepath.Join(dir, utils.SafeFilename(f.Name)))
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", transfer.NewFileError("save", f.Name, err)
	}
	return path, nil
}

func receive(cmd *cobra.Command, _ []string) error {
	if err := os.MkdirAll(flagOutDir, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	view := ui.NewTransferUI(ui.ModeReceive, nil, nil)
	view.Start()
	defer view.Stop()
	saved := make(chan string, 64)

	ctx := cmd.Context()
	l := connect(ctx, cfg, peers.Events{
		DisplayName: func(self protocol.DisplayNamePayload) {
			view.SetState(fmt.Sprintf("Visible as %s. Waiting for files...", self.DisplayName))
		},
		PeerJoined: func(p protocol.PeerInfo) {
			view.Println(ui.IconPeer + " " + peerLabel(p) + " joined")
		},
		PeerLeft: func(id string) {
			view.Println(ui.MutedStyle.Render(id + " left"))
		},
		FileProgress: func(_, name string, p float64) { view.Progress(name, 0, p) },
		FileReceived: func(_ string, f transfer.ReceivedFile) {
			path, err := saveReceived(flagOutDir, f)
			if err != nil {
				view.Fail(f.Name)
				view.Println(ui.ErrorStyle.Render(err.Error()))
				return
			}
			view.Complete(f.Name)
			select {
			case saved <- path:
			default:
			}
		},
		TextReceived: func(peerID, text string) {
			view.Println(ui.IconText + " " + ui.NameStyle.Render(peerID) + ": " + text)
		},
		Disconnected: func(retryIn time.Duration) {
			view.SetState(fmt.Sprintf("Connection lost. Retry in %d seconds...", int(retryIn.Seconds())))
		},
	})
	defer l.Close()

	for received := 0; flagCount == 0 || received < flagCount; {
		select {
		case path := <-saved:
			received++
			view.Println(ui.SuccessStyle.Render(ui.IconSuccess) + " saved " + path)
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
