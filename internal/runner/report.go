package runner

import (
	"encoding/hex"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// NewPrinter returns the printer used for counters in reports, grouping
// digits the way tag does.
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Summary renders a boxed report of res.
func Summary(res *Result, p *message.Printer) string {
	if p == nil {
		p = NewPrinter(language.English)
	}

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}

	rows := []string{
		titleStyle.Render("Deinterlace summary"),
		row("input", res.InputInfo.String()),
		row("output", res.OutputInfo.String()),
		row("frames in", p.Sprintf("%d", res.FramesIn)),
		row("frames out", p.Sprintf("%d", res.FramesOut)),
		row("bytes", p.Sprintf("%d", res.BytesWritten)),
		row("latency", res.Latency.String()),
		row("elapsed", res.Elapsed.String()),
	}
	if res.Elapsed > 0 {
		fps := float64(res.FramesIn) / res.Elapsed.Seconds()
		rows = append(rows, row("speed", p.Sprintf("%.1f fps", fps)))
	}
	if res.Stats.Passthrough > 0 {
		rows = append(rows, row("passthrough", p.Sprintf("%d", res.Stats.Passthrough)))
	}
	if res.Skipped > 0 {
		rows = append(rows, row("skipped", warnStyle.Render(p.Sprintf("%d", res.Skipped))))
	}
	if res.Stats.Dropped > 0 {
		rows = append(rows, row("qos dropped", warnStyle.Render(p.Sprintf("%d", res.Stats.Dropped))))
	}
	if res.Stats.Pattern != "" {
		rows = append(rows, row("telecine", p.Sprintf("%s phase %d", res.Stats.Pattern, res.Stats.Phase)))
	}
	rows = append(rows, row("blake2b", hex.EncodeToString(res.Digest[:16])))

	return boxStyle.Render(strings.Join(rows, "\n"))
}
