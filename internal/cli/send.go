package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aman162000/sendBIT.ch/internal/files"
	"github.com/aman162000/sendBIT.ch/internal/peers"
	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/ui"
)

var flagSendTo string

var sendCmd = &cobra.Command{
	Use:     "send <file>...",
	Aliases: []string{"s"},
	Short:   "Send files to a device on the same network",
	Long: `Send files to another device on the same network. Without --to, the only
other device in the room is used.

Examples:
  sendbit send photo.jpg
  sendbit send --to "Blue Fox" report.pdf notes.txt
  sendbit send --no-rtc --server drop.example.com --secure video.mp4`,
	Args: cobra.MinimumNArgs(1),
	RunE: sendFiles,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&flagSendTo, "to", "t", "", "Peer id or display name")
}

func sendFiles(cmd *cobra.Command, args []string) error {
	infos, err := files.ValidateFiles(args)
	if err != nil {
		return err
	}
	displayFileTable(infos)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sizes := make(map[string]int64, len(infos))
	names := make([]string, len(infos))
	sizeList := make([]int64, len(infos))
	for i, f := range infos {
		sizes[f.Name] = f.Size
		names[i], sizeList[i] = f.Name, f.Size
	}
	view := ui.NewTransferUI(ui.ModeSend, names, sizeList)

	var (
		ready = make(chan struct{}, 1)
		added = make(chan struct{}, 1)
		sent  = make(chan string, len(infos))
		left  = make(chan string, 8)
	)
	ctx := cmd.Context()
	l := connect(ctx, cfg, peers.Events{
		Peers:     func([]protocol.PeerInfo) { wake(ready) },
		PeerAdded: func(protocol.PeerInfo) { wake(added) },
		PeerLeft: func(id string) {
			select {
			case left <- id:
			default:
			}
		},
		FileProgress: func(_, name string, p float64) { view.Progress(name, sizes[name], p) },
		FileSent: func(_, name string) {
			view.Complete(name)
			sent <- name
		},
	})
	defer l.Close()

	stop := ui.RunWaitingSpinner("Looking for the receiver...")
	target, err := waitForPeer(ctx, l.manager, ready, added, flagSendTo, flagTimeout)
	stop()
	if err != nil {
		return err
	}

	outgoing, closeFiles, err := files.Open(infos)
	if err != nil {
		return err
	}
	defer closeFiles()

	start := time.Now()
	view.Start()
	view.SetState("Sending to " + peerLabel(target))
	if err := l.manager.SendFiles(target.ID, outgoing...); err != nil {
		view.Stop()
		return err
	}

	for remaining := len(infos); remaining > 0; {
		select {
		case <-sent:
			remaining--
		case id := <-left:
			if id == target.ID {
				view.Stop()
				return ErrPeerLeft
			}
		case <-ctx.Done():
			view.Stop()
			return ctx.Err()
		}
	}
	view.Stop()

	fmt.Println()
	ui.RenderTransferSummary("Transfer Summary", ui.TransferSummary{
		Status:    ui.IconComplete + " Complete",
		Peer:      peerLabel(target),
		Files:     len(infos),
		TotalSize: files.GetTotalSize(infos),
		Duration:  time.Since(start),
	})
	return nil
}

func displayFileTable(infos []files.FileInfo) {
	items := make([]ui.FileTableItem, len(infos))
	for i, f := range infos {
		items[i] = ui.FileTableItem{Index: i + 1, Name: f.Name, Size: f.Size, Type: f.Type}
	}
	fmt.Println()
	fmt.Println(ui.FileTableView(items))
}

func peerLabel(p protocol.PeerInfo) string {
	if p.Name.DisplayName == "" {
		return p.ID
	}
	if p.Name.DeviceName == "" {
		return p.Name.DisplayName
	}
	return fmt.Sprintf("%s (%s)", p.Name.DisplayName, p.Name.DeviceName)
}
