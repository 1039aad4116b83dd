package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cuppasync/internal/notify"
	"cuppasync/internal/sync"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type progressMsg notify.Progress

type syncDoneMsg struct {
	report sync.Report
	err    error
}

// progressModel renders a sync run as a progress bar
type progressModel struct {
	bar       progress.Model
	processed int
	total     int
	finishing bool
	done      bool
	cancelled bool
	report    sync.Report
	err       error
}

func newProgressModel() progressModel {
	return progressModel{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
		return m, nil

	case progressMsg:
		m.processed = msg.Processed
		m.total = msg.Total
		m.finishing = msg.Total > 0 && notify.Progress(msg).Done()
		return m, nil

	case syncDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		m.processed = msg.report.Processed
		m.total = msg.report.Total
		return m, tea.Quit
	}

	return m, nil
}

// percent is the completed fraction; an empty run counts as finished.
func (m progressModel) percent() float64 {
	if m.total == 0 {
		if m.done {
			return 1
		}
		return 0
	}
	return float64(m.processed) / float64(m.total)
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Syncing offline changes"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, "  %d/%d\n", m.processed, m.total)
	switch {
	case m.done:
	case m.finishing:
		b.WriteString(helpStyle.Render("Finishing up..."))
		b.WriteString("\n")
	default:
		b.WriteString(helpStyle.Render("q: stop after the current change"))
		b.WriteString("\n")
	}
	return b.String()
}

// runSyncTUI runs one pass of coord while rendering progress from hub.
// Quitting the view cancels the pass; the current item is left queued.
func runSyncTUI(ctx context.Context, coord *sync.Coordinator, hub *notify.Hub) (sync.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel())

	unsubscribe := hub.SubscribeProgress(func(pr notify.Progress) {
		p.Send(progressMsg(pr))
	})
	defer unsubscribe()

	result := make(chan syncDoneMsg, 1)
	go func() {
		report, err := coord.ProcessQueue(ctx)
		msg := syncDoneMsg{report: report, err: err}
		result <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return sync.Report{}, fmt.Errorf("error running progress view: %w", err)
	}

	// Covers both a finished run and a quit; a quit cancels first.
	cancel()
	msg := <-result
	return msg.report, msg.err
}
