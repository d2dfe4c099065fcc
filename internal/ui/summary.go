package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aman162000/sendBIT.ch/internal/utils"
)

// TransferSummary is the end-of-run report for a send or receive.
type TransferSummary struct {
	Status    string
	Peer      string
	Files     int
	TotalSize int64
	Duration  time.Duration
}

// Speed returns the average rate in bytes per second.
func (s TransferSummary) Speed() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.TotalSize) / s.Duration.Seconds()
}

// TransferSummaryView renders the summary as a go-pretty table.
func TransferSummaryView(title string, s TransferSummary) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Options.SeparateRows = false

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Status", s.Status},
		{"Peer", s.Peer},
		{"Files", s.Files},
		{"Total Size", utils.FormatSize(s.TotalSize)},
		{"Duration", utils.FormatTimeDuration(s.Duration)},
		{"Avg Speed", utils.FormatSpeed(s.Speed())},
	})
	return t.Render()
}

func RenderTransferSummary(title string, s TransferSummary) {
	fmt.Println(TransferSummaryView(title, s))
}
