package runner

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DoneMsg tells a ProgressModel that the run finished.
type DoneMsg struct {
	Result *Result
	Err    error
}

type progressMsg Progress

// ProgressModel is a bubbletea model showing a live view of a run.
type ProgressModel struct {
	updates <-chan Progress
	cancel  func()
	printer *message.Printer
	total   uint64
	width   int

	last   Progress
	done   bool
	result *Result
	err    error
}

// NewProgressModel creates a model fed from updates. total is the expected
// number of input frames, zero when unknown. cancel is invoked when the
// user quits before the run finished.
func NewProgressModel(updates <-chan Progress, total uint64, cancel func()) *ProgressModel {
	return &ProgressModel{
		updates: updates,
		cancel:  cancel,
		printer: message.NewPrinter(language.English),
		total:   total,
		width:   30,
	}
}

func (m *ProgressModel) waitForProgress() tea.Msg {
	p, ok := <-m.updates
	if !ok {
		return nil
	}
	return progressMsg(p)
}

// Init implements tea.Model.
func (m *ProgressModel) Init() tea.Cmd {
	return m.waitForProgress
}

// Update implements tea.Model.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.last = Progress(msg)
		if m.done {
			return m, nil
		}
		return m, m.waitForProgress
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 40; w > 10 {
			m.width = w
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("deinterlace"))
	b.WriteString("\n")

	if m.total > 0 {
		b.WriteString(m.bar())
		b.WriteString(" ")
	}
	b.WriteString(m.printer.Sprintf("%d in, %d out", m.last.FramesIn, m.last.FramesOut))
	b.WriteString(fmt.Sprintf("  t=%v", m.last.PTS))
	if m.last.Stats.Dropped > 0 {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(m.printer.Sprintf("%d late", m.last.Stats.Dropped)))
	}
	if m.last.Stats.Pattern != "" {
		b.WriteString(fmt.Sprintf("  telecine %s", m.last.Stats.Pattern))
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(warnStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.done:
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("done"))
		b.WriteString("\n")
	default:
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("q to stop"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ProgressModel) bar() string {
	filled := int(m.last.FramesIn * uint64(m.width) / m.total)
	if filled > m.width {
		filled = m.width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", m.width-filled) + "]"
}
