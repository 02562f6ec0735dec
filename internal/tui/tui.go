// Package tui provides a Bubble Tea terminal user interface for post-exporter.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/handiism/post-exporter/internal/catalog"
	"github.com/handiism/post-exporter/internal/config"
	"github.com/handiism/post-exporter/internal/export"
	"github.com/handiism/post-exporter/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	formatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateExporting
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   export.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	orch      *export.Orchestrator
	logs      []LogEntry
	err       error

	// Export context
	ctx    context.Context
	cancel context.CancelFunc

	handle  *export.Handle
	stage   export.State
	percent map[string]int
	result  *export.Result

	// Options
	formats  []model.FormatDescriptor
	selected map[string]bool
	mode     model.Mode
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. The orchestrator runs the exports;
// settings provide the initial format selection and mode.
func NewModel(settings *config.Settings, orch *export.Orchestrator) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/post.json"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#F8B500"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	ctx, cancel := context.WithCancel(context.Background())

	selected := make(map[string]bool)
	for _, k := range settings.DefaultFormats {
		selected[k] = true
	}

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		orch:      orch,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		formats:   catalog.All(),
		selected:  selected,
		mode:      settings.ExportMode(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// EventMsg carries one orchestrator event.
	EventMsg struct {
		Event export.Event
	}

	// ExportDoneMsg is sent when the job has finished.
	ExportDoneMsg struct {
		Result *export.Result
		Err    error
	}

	// startedMsg is sent once the job has been accepted.
	startedMsg struct {
		Handle *export.Handle
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-40, 20), 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateExporting {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				return m.startExport()
			}

		case "tab":
			if m.state == StateInput {
				m.mode = (m.mode + 1) % 3
				return m, nil
			}

		case "ctrl+d":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new export
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.handle = nil
				m.result = nil
				m.percent = nil
				m.stage = export.StateIdle
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, nil
			}

		default:
			if m.state == StateInput {
				if key, ok := m.formatForKey(msg.String()); ok {
					m.selected[key] = !m.selected[key]
					return m, nil
				}
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case startedMsg:
		m.handle = msg.Handle
		cmds = append(cmds, waitForEvent(m.handle))

	case EventMsg:
		m.applyEvent(msg.Event)
		cmds = append(cmds, waitForEvent(m.handle))

	case ExportDoneMsg:
		m.result = msg.Result
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// formatForKey maps alt+1 to alt+9 to catalog formats. Plain digits stay
// available for the path input.
func (m Model) formatForKey(k string) (string, bool) {
	d, ok := strings.CutPrefix(k, "alt+")
	if !ok || len(d) != 1 || d[0] < '1' || d[0] > '9' {
		return "", false
	}
	i := int(d[0] - '1')
	if i >= len(m.formats) {
		return "", false
	}
	return m.formats[i].Key, true
}

// selectedFormats returns the chosen formats in catalog order.
func (m Model) selectedFormats() []model.FormatDescriptor {
	var out []model.FormatDescriptor
	for _, f := range m.formats {
		if m.selected[f.Key] {
			out = append(out, f)
		}
	}
	return out
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	post, err := model.LoadPost(strings.TrimSpace(m.textInput.Value()))
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}

	job, err := export.NewJob(post, m.selectedFormats(), m.mode, time.Now())
	if err != nil {
		m.state = StateError
		m.err = err
		return m, nil
	}

	m.state = StateExporting
	m.stage = export.StateIdle
	m.percent = make(map[string]int, len(job.Formats))
	for _, k := range job.Keys() {
		m.percent[k] = 0
	}

	orch, ctx := m.orch, m.ctx
	start := func() tea.Msg {
		h, err := orch.Start(ctx, job)
		if err != nil {
			return ExportDoneMsg{Err: err}
		}
		return startedMsg{Handle: h}
	}
	return m, tea.Batch(start, m.spinner.Tick)
}

// waitForEvent reads the next event of a running job, or its result once
// the event stream is closed.
func waitForEvent(h *export.Handle) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-h.Events()
		if !ok {
			res, err := h.Wait()
			return ExportDoneMsg{Result: res, Err: err}
		}
		return EventMsg{Event: e}
	}
}

func (m *Model) applyEvent(e export.Event) {
	m.stage = e.State
	if e.FormatKey != "" {
		if _, ok := m.percent[e.FormatKey]; ok {
			m.percent[e.FormatKey] = e.Percent
		}
	}
	if e.Message == "" {
		return
	}
	// Filter verbose messages if not in verbose mode
	if e.Level == export.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: e.Message, Level: e.Level})
	// Keep only last 10 logs
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Post Exporter"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Export one post to every platform"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateExporting:
		b.WriteString(m.viewExporting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Post file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Formats:"))
	b.WriteString("\n")
	for i, f := range m.formats {
		check := "[ ]"
		if m.selected[f.Key] {
			check = "[x]"
		}
		fmt.Fprintf(&b, "  %s %-20s %-10s %s (alt+%d)\n", check, f.Label, f.Resolution(), f.Aspect, i+1)
	}
	b.WriteString("\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Mode: %s (tab)\n", formatStyle.Render(m.mode.String()))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+d)\n", verboseCheck)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output folder: %s", m.settings.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewExporting() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(stageTitle(m.stage)))
	b.WriteString("\n\n")

	for _, f := range m.formats {
		p, ok := m.percent[f.Key]
		if !ok {
			continue
		}
		b.WriteString(formatStyle.Render(fmt.Sprintf("  %-20s ", f.Label)))
		b.WriteString(m.progress.ViewAs(float64(p) / 100))
		b.WriteString(dimStyle.Render(" " + model.StatusFor(p).String()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func stageTitle(s export.State) string {
	switch s {
	case export.StateRecording:
		return "Registering export..."
	case export.StateRendering:
		return "Rendering derivatives..."
	case export.StatePackaging:
		return "Packaging..."
	case export.StateDone:
		return "Finishing..."
	default:
		return "Starting..."
	}
}

func (m Model) viewComplete() string {
	var b strings.Builder

	var rendered, skipped int
	if m.result != nil {
		for _, f := range m.result.Formats {
			rendered += f.Rendered
			skipped += f.Skipped
		}
	}

	summary := fmt.Sprintf("Export complete (%s)\n\nFormats: %d\nImages: %d", m.mode, len(m.percent), rendered)
	if skipped > 0 {
		summary += fmt.Sprintf("\nSkipped: %d", skipped)
	}
	if m.result != nil && m.result.ArchivePath != "" {
		summary += "\nArchive: " + m.result.ArchivePath
	} else if m.result != nil && len(m.result.Files) > 0 {
		summary += fmt.Sprintf("\nFiles saved: %s", humanize.Comma(int64(len(m.result.Files))))
	}
	b.WriteString(boxStyle.Render(summary))

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Export failed:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case export.LevelError:
			style = errorStyle
			prefix = "✗"
		case export.LevelWarning:
			style = warningStyle
			prefix = "!"
		case export.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case export.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: export • alt+1-9: toggle format • tab: mode • ctrl+d: verbose • esc: quit"
	case StateExporting:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new export • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, orch *export.Orchestrator) error {
	p := tea.NewProgram(NewModel(settings, orch), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
