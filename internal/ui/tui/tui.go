package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/scout/internal/agent"
)

// TUI forwards research updates into a running bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) Observe(u agent.Update) {
	t.program.Send(UpdateMsg(u))
	for _, note := range u.State.Notes {
		t.program.Send(NoteMsg(note))
	}
	if u.Step.Terminal() {
		t.program.Send(DoneMsg{Report: u.State.FinalReport, Err: u.State.Err})
	}
}

func (t *TUI) Log(msg string) {
	t.program.Send(NoteMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))
)

type Model struct {
	Query     string
	Phase     agent.Phase
	Step      string
	Iteration int
	MaxIter   int
	Notes     []string
	seen      map[string]bool
	Report    string
	Err       string
	Progress  progress.Model
	Viewport  viewport.Model
	Quitting  bool
	Ready     bool
	Width     int
	Height    int
}

type UpdateMsg agent.Update
type NoteMsg string

type DoneMsg struct {
	Report string
	Err    string
}

func NewModel(query string, maxIter int) Model {
	p := progress.New(progress.WithDefaultGradient())
	return Model{
		Query:    query,
		Phase:    agent.PhaseInit,
		Step:     "starting...",
		MaxIter:  maxIter,
		seen:     make(map[string]bool),
		Progress: p,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-10)
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 10
		}

	case UpdateMsg:
		m.Phase = msg.Step
		m.Step = msg.State.CurrentStep
		m.Iteration = msg.Iteration

	case NoteMsg:
		// Notes arrive re-played with each snapshot; show each once.
		if !m.seen[string(msg)] {
			m.seen[string(msg)] = true
			m.Notes = append(m.Notes, string(msg))
			m.Viewport.SetContent(strings.Join(m.Notes, "\n"))
			m.Viewport.GotoBottom()
		}

	case DoneMsg:
		m.Report = msg.Report
		m.Err = msg.Err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Starting research..."
	}

	header := titleStyle.Render(" Scout Research ")
	phase := phaseStyle.Render(fmt.Sprintf(" %s: %s ", m.Phase, m.Step))
	iter := fmt.Sprintf(" Iteration: %d/%d ", m.Iteration, m.MaxIter)

	prog := m.Progress.ViewAs(float64(m.Iteration) / float64(m.MaxIter))

	view := fmt.Sprintf("%s%s%s\n\n%s\n\n%s",
		header, phase, iter,
		m.Viewport.View(),
		prog)

	if m.Err != "" {
		view += "\n" + errorStyle.Render("Failed: "+m.Err) + "\n"
	}
	if m.Quitting {
		return view + "\n  Quitting...\n"
	}

	return view
}
