// Package tui provides the interactive menu for heic-converter. Each menu
// choice collects a path and options, then hands off to batch.Run.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/heic-converter/internal/batch"
	"github.com/pdiddy/heic-converter/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 2)
)

// State represents the current UI state.
type State int

const (
	StateMenu State = iota
	StatePath
	StateOutput
	StateSubfolder
	StateConverting
	StateDone
)

// Mode is the menu choice being carried out.
type Mode int

const (
	ModeFile Mode = iota + 1
	ModeFolder
	ModeRecursive
)

// RunFunc performs one batch conversion. batch.Run with a bound converter
// satisfies it.
type RunFunc func(ctx context.Context, paths []string, cfg types.BatchConfig, w io.Writer) batch.Result

// Model is the Bubble Tea model for the interactive menu.
type Model struct {
	state   State
	mode    Mode
	input   textinput.Model
	spinner spinner.Model

	base types.BatchConfig
	run  RunFunc

	path      string
	outputDir string
	subfolder bool

	notice string
	log    []string
	result batch.Result
}

// NewModel returns a model at the main menu. base carries the quality and
// worker settings applied to every run.
func NewModel(base types.BatchConfig, run RunFunc) Model {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	return Model{
		state:   StateMenu,
		input:   ti,
		spinner: sp,
		base:    base,
		run:     run,
	}
}

// State returns the current UI state.
func (m Model) State() State { return m.state }

func (m Model) Init() tea.Cmd {
	return nil
}

// doneMsg carries the output of a finished run.
type doneMsg struct {
	log    []string
	result batch.Result
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StatePath, StateOutput, StateSubfolder:
			return m.updatePrompt(msg)
		case StateDone:
			m.state = StateMenu
			m.log = nil
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateConverting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		m.state = StateDone
		m.log = msg.log
		m.result = msg.result
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "1":
		return m.prompt(ModeFile, StatePath, "Path to a HEIC file"), textinput.Blink
	case "2":
		return m.prompt(ModeFolder, StatePath, "Path to a folder"), textinput.Blink
	case "3":
		return m.prompt(ModeRecursive, StatePath, "Path to a folder"), textinput.Blink
	case "4", "q", "esc":
		return m, tea.Quit
	default:
		m.notice = "Invalid choice. Please enter 1-4."
		return m, nil
	}
}

func (m Model) prompt(mode Mode, state State, placeholder string) Model {
	m.mode = mode
	m.state = state
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateMenu
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit advances past the current prompt. An empty path returns to the
// menu.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := cleanPath(m.input.Value())

	switch m.state {
	case StatePath:
		if value == "" {
			m.state = StateMenu
			return m, nil
		}
		m.path = value
		if m.mode == ModeFile {
			return m.prompt(m.mode, StateOutput, "Press Enter for the same folder"), textinput.Blink
		}
		return m.prompt(m.mode, StateSubfolder, "y"), textinput.Blink

	case StateOutput:
		m.outputDir = value
		m.subfolder = false
		return m.start()

	case StateSubfolder:
		m.outputDir = ""
		m.subfolder = strings.ToLower(value) != "n"
		return m.start()
	}
	return m, nil
}

func cleanPath(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// Config returns the batch configuration for the collected answers.
func (m Model) Config() types.BatchConfig {
	cfg := m.base
	cfg.Recursive = m.mode == ModeRecursive
	cfg.OutputDir = m.outputDir
	cfg.CreateSubfolder = m.subfolder
	return cfg
}

func (m Model) start() (tea.Model, tea.Cmd) {
	m.state = StateConverting
	m.input.Blur()

	cfg := m.Config()
	path := m.path
	run := m.run
	convert := func() tea.Msg {
		var buf bytes.Buffer
		res := run(context.Background(), []string{path}, cfg, &buf)
		return doneMsg{log: splitLines(buf.String()), result: res}
	}
	return m, tea.Batch(convert, m.spinner.Tick)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("HEIC to JPG Converter"))
	b.WriteString("\n")

	switch m.state {
	case StateMenu:
		b.WriteString(m.viewMenu())
	case StatePath:
		b.WriteString(m.viewPrompt("Enter path:"))
	case StateOutput:
		b.WriteString(m.viewPrompt("Output directory (press Enter for same folder):"))
	case StateSubfolder:
		b.WriteString(m.viewPrompt(fmt.Sprintf("Create '%s' subfolder? (y/n, default: y):", types.DefaultSubfolder)))
	case StateConverting:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Converting " + m.path + "..."))
		b.WriteString("\n")
	case StateDone:
		b.WriteString(m.viewDone())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	return b.String()
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString("  1. Convert a single file\n")
	b.WriteString("  2. Convert a folder\n")
	b.WriteString("  3. Convert a folder (recursive - includes subfolders)\n")
	b.WriteString("  4. Exit\n")
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.notice))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewPrompt(label string) string {
	return subtitleStyle.Render(label) + "\n\n" + m.input.View() + "\n"
}

func (m Model) viewDone() string {
	var b strings.Builder
	for _, line := range m.log {
		switch {
		case strings.HasPrefix(line, "failed"):
			b.WriteString(errorStyle.Render(line))
		case strings.HasPrefix(line, "warning"), strings.HasPrefix(line, "skipped"), strings.HasPrefix(line, "No HEIC"):
			b.WriteString(warningStyle.Render(line))
		case strings.HasPrefix(line, "converted"):
			b.WriteString(successStyle.Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	summary := fmt.Sprintf("Completed: %d converted, %d failed", m.result.Succeeded(), m.result.Failed)
	if m.result.HasFailures() {
		b.WriteString(boxStyle.BorderForeground(lipgloss.Color("#FF6B6B")).Render(summary))
	} else {
		b.WriteString(boxStyle.Render(summary))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateMenu:
		return "1-4: choose • q: quit"
	case StatePath, StateOutput, StateSubfolder:
		return "enter: confirm • esc: back to menu"
	case StateDone:
		return "any key: back to menu"
	}
	return ""
}

// Run starts the interactive menu.
func Run(base types.BatchConfig, run RunFunc) error {
	p := tea.NewProgram(NewModel(base, run))
	_, err := p.Run()
	return err
}
