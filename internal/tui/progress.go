package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roelfdiedericks/gointake/internal/upload"
)

type uploadSnapshotMsg []upload.Progress

type uploadDoneMsg struct{ err error }

// uploadModel shows one bar per file while an Attach runs.
type uploadModel struct {
	title  string
	names  []string
	snap   []upload.Progress
	bar    progress.Model
	cancel context.CancelFunc
	done   bool
	err    error
	width  int
}

func newUploadModel(title string, names []string, cancel context.CancelFunc) *uploadModel {
	return &uploadModel{
		title:  title,
		names:  names,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel: cancel,
	}
}

func (m *uploadModel) Init() tea.Cmd { return nil }

func (m *uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			// the attach goroutine still reports done after cancelling
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 40; w > 10 && w < 60 {
			m.bar.Width = w
		}
	case uploadSnapshotMsg:
		m.snap = msg
	case uploadDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *uploadModel) View() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render(m.title))
	b.WriteString("\n\n")

	rows := m.snap
	if len(rows) == 0 {
		for _, n := range m.names {
			rows = append(rows, upload.Progress{Filename: n, Status: upload.StatusUploading})
		}
	}
	for _, p := range rows {
		status := ""
		switch p.Status {
		case upload.StatusCompleted:
			status = successStyle.Render("done")
		case upload.StatusError:
			status = errorStyle.Render(p.Error)
		}
		name := lipgloss.NewStyle().Width(24).Render(truncate(p.Filename, 24))
		fmt.Fprintf(&b, "%s %s %s\n", name, m.bar.ViewAs(float64(p.Progress)/100), status)
	}
	if !m.done {
		b.WriteString(helpStyle.Render("esc cancel"))
	}
	return b.String()
}

// runUpload drives attach in a goroutine and renders its snapshots. The
// returned error is attach's.
func runUpload(ctx context.Context, title string, names []string, attach func(context.Context, func([]upload.Progress)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newUploadModel(title, names, cancel)
	p := tea.NewProgram(m)
	go func() {
		err := attach(ctx, func(snap []upload.Progress) { p.Send(uploadSnapshotMsg(snap)) })
		p.Send(uploadDoneMsg{err: err})
	}()
	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	return m.err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
