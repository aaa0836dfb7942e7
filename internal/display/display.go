package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/dyike/finreact/internal/digest"
	"github.com/dyike/finreact/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	answerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 1).
			Width(80)

	toolCallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))
)

// Printer renders CLI output.
type Printer struct {
	out io.Writer
}

func New(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

func (p *Printer) Title(text string) {
	fmt.Fprintln(p.out, titleStyle.Render(text))
}

func (p *Printer) Info(text string) {
	fmt.Fprintln(p.out, mutedStyle.Render(text))
}

func (p *Printer) Success(text string) {
	fmt.Fprintln(p.out, successStyle.Render("✓ "+text))
}

func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, errorStyle.Render("✗ "+err.Error()))
}

// ToolCall prints a one-line notice while the loop runs a tool.
func (p *Printer) ToolCall(name, args string) {
	if len(args) > 80 {
		args = args[:77] + "..."
	}
	fmt.Fprintln(p.out, toolCallStyle.Render(fmt.Sprintf("🔧 %s %s", name, args)))
}

// Answer prints the final answer with the tools that produced it.
func (p *Printer) Answer(answer string, toolsUsed []string, elapsed time.Duration) {
	fmt.Fprintln(p.out, answerStyle.Render(strings.TrimSpace(answer)))
	meta := elapsed.Round(time.Millisecond).String()
	if len(toolsUsed) > 0 {
		meta = "tools: " + strings.Join(toolsUsed, ", ") + " · " + meta
	}
	fmt.Fprintln(p.out, mutedStyle.Render(meta))
}

func (p *Printer) Favorites(favs []models.FavoriteStock) {
	if len(favs) == 0 {
		p.Info("No favorite stocks yet.")
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("SYMBOL", "LOW", "HIGH", "ADDED")
	for _, f := range favs {
		t.Row(f.Symbol, threshold(f.PriceThresholdLow), threshold(f.PriceThresholdHigh), humanize.Time(f.AddedAt))
	}
	fmt.Fprintln(p.out, t.String())
}

func (p *Printer) History(entries []models.HistoryEntry) {
	if len(entries) == 0 {
		p.Info("No queries yet.")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(p.out, "%s %s\n", headerStyle.Render(fmt.Sprintf("%d.", i+1)), e.QueryText)
		fmt.Fprintln(p.out, mutedStyle.Render(fmt.Sprintf("   %s · %dms · %s",
			humanize.Time(e.QueryTimestamp), e.ExecutionTimeMS, strings.Join(e.ToolsUsed, ", "))))
		fmt.Fprintf(p.out, "   %s\n\n", truncate(e.ResponseText, 200))
	}
}

func (p *Printer) DigestReport(r *digest.Report) {
	if r.Skipped {
		p.Info(fmt.Sprintf("%s is a weekend day, digest skipped.", r.Date))
		return
	}
	msg := fmt.Sprintf("Digest %s: %d users, %d sent, %d failed", r.Date, r.Users, r.Sent, r.Failed)
	if r.Failed > 0 {
		fmt.Fprintln(p.out, errorStyle.Render(msg))
		return
	}
	p.Success(msg)
}

func threshold(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
