// Package tui is the terminal front end of an intake session. Each screen
// is a huh form inside a framed bubbletea program.
package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const helpText = "↑/↓ navigate • enter select • esc back • ctrl+c quit"

// refreshMsg redraws the frame so the autosave indicator stays current
// while the user is idle.
type refreshMsg struct{}

func refresh() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Screen is one framed form.
type Screen struct {
	FrameTitle string
	Subtitle   string
	Body       string // rendered between subtitle and form
	Status     func() string
	Form       *huh.Form
}

// app wraps a Screen in a framed, centered bubbletea model.
type app struct {
	screen   Screen
	form     *huh.Form
	width    int
	height   int
	quitting bool
	aborted  bool
}

func (a *app) Init() tea.Cmd {
	return tea.Batch(a.form.Init(), refresh())
}

func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case refreshMsg:
		return a, refresh()
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		return a, tea.Quit
	case huh.StateAborted:
		a.aborted = true
		return a, tea.Quit
	}
	return a, cmd
}

func (a *app) View() string {
	if a.quitting {
		return ""
	}
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	frameWidth := a.width - 4
	frameHeight := a.height - 4

	parts := []string{}
	if a.screen.Subtitle != "" {
		parts = append(parts, subtitleStyle.Render(a.screen.Subtitle))
	}
	if a.screen.Body != "" {
		parts = append(parts, a.screen.Body, "")
	}
	parts = append(parts, a.form.View())
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	framed := renderFrameWithTitle(a.screen.FrameTitle, content, frameWidth, frameHeight)

	footer := []string{framed}
	if a.screen.Status != nil {
		if line := a.screen.Status(); line != "" {
			footer = append(footer, statusBarStyle.Width(frameWidth).Render(line))
		}
	}
	footer = append(footer, lipgloss.NewStyle().Width(frameWidth).Align(lipgloss.Center).Render(helpStyle.Render(helpText)))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, footer...))
}

// Show runs the screen until its form completes. Esc returns
// huh.ErrUserAborted; ctrl+c returns ErrQuit.
func Show(s Screen) error {
	a := &app{screen: s, form: s.Form.WithShowHelp(false).WithKeyMap(formKeyMap()).WithTheme(formTheme())}
	if _, err := tea.NewProgram(a, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	switch {
	case a.quitting:
		return ErrQuit
	case a.aborted:
		return huh.ErrUserAborted
	}
	return nil
}

// Choose shows a menu and returns the selected value.
func Choose(s Screen, title string, options []huh.Option[string]) (string, error) {
	var choice string
	if len(options) > 0 {
		choice = options[0].Value
	}
	s.Form = huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(options...).Value(&choice),
	))
	if err := Show(s); err != nil {
		return "", err
	}
	return choice, nil
}

// renderFrameWithTitle draws a rounded border with title set into the top edge.
func renderFrameWithTitle(title, content string, width, height int) string {
	innerWidth := width - 2
	if innerWidth < 8 {
		innerWidth = 8
	}
	contentWidth := innerWidth - 4

	titleText := " " + title + " "
	titleLen := lipgloss.Width(titleText)
	leftLen := 2
	rightLen := innerWidth - leftLen - titleLen
	if rightLen < 0 {
		rightLen = 0
	}

	top := borderStyle.Render("╭"+strings.Repeat("─", leftLen)) +
		frameTitleStyle.Render(titleText) +
		borderStyle.Render(strings.Repeat("─", rightLen)+"╮")

	padded := lipgloss.NewStyle().Width(contentWidth).Padding(1, 2).Render(content)

	lines := strings.Split(padded, "\n")
	middle := make([]string, 0, len(lines))
	for _, line := range lines {
		pad := innerWidth - lipgloss.Width(line)
		if pad < 0 {
			pad = 0
		}
		middle = append(middle, borderStyle.Render("│")+line+strings.Repeat(" ", pad)+borderStyle.Render("│"))
	}
	for len(middle) < height-2 {
		middle = append(middle, borderStyle.Render("│")+strings.Repeat(" ", innerWidth)+borderStyle.Render("│"))
	}

	bottom := borderStyle.Render("╰" + strings.Repeat("─", innerWidth) + "╯")
	return top + "\n" + strings.Join(middle, "\n") + "\n" + bottom
}
