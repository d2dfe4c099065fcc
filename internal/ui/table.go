package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aman162000/sendBIT.ch/internal/protocol"
	"github.com/aman162000/sendBIT.ch/internal/utils"
)

// FileTableItem represents a file in the table
type FileTableItem struct {
	Index int
	Name  string
	Size  int64
	Type  string
}

func styledTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

// FileTableView renders the files about to be sent.
func FileTableView(items []FileTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No files")
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.Index),
			truncate(item.Name, 50),
			utils.FormatSize(item.Size),
			truncate(item.Type, 20),
		})
	}
	return styledTable([]string{"#", "Name", "Size", "Type"}, rows).Render()
}

// PeerTableView renders the peers visible in the room. localRTC decides
// which transport each peer would get.
func PeerTableView(peers []protocol.PeerInfo, localRTC bool) string {
	if len(peers) == 0 {
		return MutedStyle.Render("No other devices on this network")
	}

	rows := make([][]string, 0, len(peers))
	for i, p := range peers {
		transport := IconRelay + " relayed"
		if localRTC && p.RTCSupported {
			transport = IconDirect + " direct"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			p.Name.DisplayName,
			p.Name.DeviceName,
			transport,
			p.ID,
		})
	}
	return styledTable([]string{"#", "Name", "Device", "Transport", "ID"}, rows).Render()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
