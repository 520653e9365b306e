// Package render turns an analysis payload into terminal text, a
// proportional bar and a donut chart.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/pep299/article-bias-analyzer/internal/model"
)

// Chart colors and labels
const (
	LeftColor  = "#3498db"
	RightColor = "#e74c3c"
	EmptyColor = "#d0d3d4"
	LeftLabel  = "Left Leaning"
	RightLabel = "Right Leaning"
)

// DefaultWidth is the terminal width used when none is given
const DefaultWidth = 60

var (
	leftStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(LeftColor))
	rightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(RightColor))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(EmptyColor))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
)

// Chart is the donut chart description handed to graphical front ends
type Chart struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
	Cutout string   `json:"cutout"`
}

// ChartData builds the donut chart description for a payload
func ChartData(p model.Payload) Chart {
	return Chart{
		Labels: []string{LeftLabel, RightLabel},
		Values: []int{p.Left, p.Right},
		Colors: []string{LeftColor, RightColor},
		Cutout: "60%",
	}
}

// BarWidths splits width cells between left and right in proportion. A
// 0/0 estimate is split evenly.
func BarWidths(left, right, width int) (int, int) {
	if width <= 0 {
		return 0, 0
	}
	total := left + right
	if total <= 0 {
		l := width / 2
		return l, width - l
	}
	l := int(math.Round(float64(left) / float64(total) * float64(width)))
	if l > width {
		l = width
	}
	return l, width - l
}

// Bar draws the proportional bar used when no chart can be shown
func Bar(left, right, width int) string {
	l, r := BarWidths(left, right, width)
	if left+right <= 0 {
		return emptyStyle.Render(strings.Repeat("░", l+r))
	}
	return leftStyle.Render(strings.Repeat("█", l)) + rightStyle.Render(strings.Repeat("█", r))
}

// Text writes the payload for a terminal of the given width
func Text(w io.Writer, p model.Payload, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Political Bias Analysis"))
	sb.WriteString("\n")
	if p.Title != "" {
		sb.WriteString(runewidth.Truncate(p.Title, width, "…"))
		sb.WriteString("\n")
	}
	if p.URL != "" {
		sb.WriteString(mutedStyle.Render(runewidth.Truncate(p.URL, width, "…")))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if p.Degenerate {
		sb.WriteString(noticeStyle.Render("The model reply contained no percentages."))
		sb.WriteString("\n")
	}

	labelWidth := runewidth.StringWidth(RightLabel)
	sb.WriteString(line(leftStyle, LeftLabel, labelWidth, p.Left))
	sb.WriteString(line(rightStyle, RightLabel, labelWidth, p.Right))
	sb.WriteString("\n")
	sb.WriteString(Bar(p.Left, p.Right, width))
	sb.WriteString("\n")

	if p.Raw != "" {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render("Model reply:"))
		sb.WriteString("\n")
		sb.WriteString(p.Raw)
		sb.WriteString("\n")
	}
	if p.Cached {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("(cached result from %s)", p.AnalyzedAt.Format("2006-01-02 15:04 MST"))))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func line(style lipgloss.Style, label string, labelWidth, value int) string {
	padding := labelWidth - runewidth.StringWidth(label)
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("%s%s  %3d%%\n", style.Render(label), strings.Repeat(" ", padding), value)
}
