package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aman162000/sendBIT.ch/internal/utils"
)

type TransferMode int

const (
	ModeSend TransferMode = iota
	ModeReceive
)

// TransferUI shows live per-file progress. Files are keyed by name and
// appear on their first update.
type TransferUI struct {
	program *tea.Program
	model   *transferModel
	wg      sync.WaitGroup
}

type fileUpdate struct {
	name     string
	size     int64
	progress float64
	done     bool
	failed   bool
}

type stateUpdate string

type tickMsg time.Time

type fileRow struct {
	name     string
	size     int64
	progress float64
	started  time.Time
	done     bool
	failed   bool
	bar      progress.Model
}

type transferModel struct {
	mode     TransferMode
	state    string
	files    []*fileRow
	index    map[string]*fileRow
	spinner  spinner.Model
	quitting bool
	now      func() time.Time
}

func newTransferModel(mode TransferMode) *transferModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return &transferModel{
		mode:    mode,
		state:   "Connecting...",
		index:   make(map[string]*fileRow),
		spinner: s,
		now:     time.Now,
	}
}

// NewTransferUI creates a transfer view. sizes may be nil when the files
// are not known in advance.
func NewTransferUI(mode TransferMode, names []string, sizes []int64) *TransferUI {
	m := newTransferModel(mode)
	for i, name := range names {
		var size int64
		if i < len(sizes) {
			size = sizes[i]
		}
		m.row(name, size)
	}
	return &TransferUI{model: m}
}

// Start runs the view inline, keeping earlier terminal output visible.
func (ui *TransferUI) Start() {
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		if _, err := ui.program.Run(); err != nil {
			PrintWarningf("UI error: %v", err)
		}
	}()
}

// Progress reports a fraction in [0, 1] for a file.
func (ui *TransferUI) Progress(name string, size int64, p float64) {
	ui.send(fileUpdate{name: name, size: size, progress: p})
}

func (ui *TransferUI) Complete(name string) {
	ui.send(fileUpdate{name: name, progress: 1, done: true})
}

func (ui *TransferUI) Fail(name string) {
	ui.send(fileUpdate{name: name, failed: true})
}

func (ui *TransferUI) SetState(state string) {
	ui.send(stateUpdate(state))
}

// Println prints a line above the live view.
func (ui *TransferUI) Println(line string) {
	if ui.program != nil {
		ui.program.Println(line)
	}
}

func (ui *TransferUI) send(msg tea.Msg) {
	if ui.program != nil {
		ui.program.Send(msg)
	}
}

// Stop renders the final frame and waits for the program to exit.
func (ui *TransferUI) Stop() {
	if ui.program == nil {
		return
	}
	ui.program.Quit()
	ui.wg.Wait()
}

func (m *transferModel) row(name string, size int64) *fileRow {
	if r, ok := m.index[name]; ok {
		if size > 0 {
			r.size = size
		}
		return r
	}
	r := &fileRow{
		name: name,
		size: size,
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(25),
			progress.WithoutPercentage(),
		),
	}
	m.files = append(m.files, r)
	m.index[name] = r
	return r
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *transferModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m *transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		for _, r := range m.files {
			r.bar.Width = max(10, min(25, msg.Width-60))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tick()

	case stateUpdate:
		m.state = string(msg)

	case fileUpdate:
		r := m.row(msg.name, msg.size)
		switch {
		case msg.failed:
			r.failed = true
		case msg.done:
			r.done = true
			r.progress = 1
		default:
			if r.started.IsZero() && msg.progress > 0 {
				r.started = m.now()
			}
			r.progress = msg.progress
		}
	}
	return m, nil
}

func (m *transferModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	icon, verb := IconSend, "Sending"
	if m.mode == ModeReceive {
		icon, verb = IconReceive, "Receiving"
	}
	fmt.Fprintf(&b, "\n%s %s\n\n", icon, TitleStyle.Render(verb))
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), m.state)

	for _, r := range m.files {
		var (
			mark  string
			style lipgloss.Style
		)
		switch {
		case r.failed:
			mark, style = IconError, ErrorStyle
		case r.done:
			mark, style = IconSuccess, SuccessStyle
		case r.progress > 0:
			mark, style = m.spinner.View(), lipgloss.NewStyle()
		default:
			mark, style = "○", MutedStyle
		}

		fmt.Fprintf(&b, "  %s %s %s %5.1f%%", mark, style.Width(24).Render(truncate(r.name, 22)),
			r.bar.ViewAs(r.progress), r.progress*100)

		if !r.done && !r.failed && r.size > 0 && !r.started.IsZero() {
			if elapsed := m.now().Sub(r.started).Seconds(); elapsed > 0 {
				speed := r.progress * float64(r.size) / elapsed
				b.WriteString(MutedStyle.Render(" " + utils.FormatSpeed(speed)))
			}
		}
		if r.size > 0 {
			b.WriteString(MutedStyle.Render(" (" + utils.FormatSize(r.size) + ")"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to cancel"))
	return b.String()
}
