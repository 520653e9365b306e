package render

import (
	"fmt"
	"math"
	"strings"
)

const (
	svgSize     = 200
	outerRadius = 100.0
	// inner radius is 60% of the outer one
	ringRadius = outerRadius * 0.8
	ringWidth  = outerRadius * 0.4
)

// DonutSVG draws the left/right split as a standalone SVG donut chart. A
// 0/0 estimate draws an empty grey ring.
func DonutSVG(left, right int) string {
	circumference := 2 * math.Pi * ringRadius
	center := svgSize / 2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		svgSize, svgSize, svgSize, svgSize)
	sb.WriteString("\n")

	total := left + right
	if total <= 0 {
		fmt.Fprintf(&sb, `  <circle cx="%d" cy="%d" r="%.2f" fill="none" stroke="%s" stroke-width="%.2f"/>`,
			center, center, ringRadius, EmptyColor, ringWidth)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, `  <text x="%d" y="%d" text-anchor="middle" dominant-baseline="middle" font-family="sans-serif" font-size="14">n/a</text>`,
			center, center)
		sb.WriteString("\n</svg>\n")
		return sb.String()
	}

	leftLen := float64(left) / float64(total) * circumference
	rightLen := circumference - leftLen

	// Segments start at twelve o'clock and run clockwise
	fmt.Fprintf(&sb, `  <g transform="rotate(-90 %d %d)">`, center, center)
	sb.WriteString("\n")
	writeSegment(&sb, center, LeftColor, LeftLabel, left, leftLen, circumference, 0)
	writeSegment(&sb, center, RightColor, RightLabel, right, rightLen, circumference, -leftLen)
	sb.WriteString("  </g>\n")

	fmt.Fprintf(&sb, `  <text x="%d" y="%d" text-anchor="middle" font-family="sans-serif" font-size="14" fill="%s">%d%% L</text>`,
		center, center-4, LeftColor, left)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `  <text x="%d" y="%d" text-anchor="middle" font-family="sans-serif" font-size="14" fill="%s">%d%% R</text>`,
		center, center+14, RightColor, right)
	sb.WriteString("\n</svg>\n")

	return sb.String()
}

func writeSegment(sb *strings.Builder, center int, color, label string, value int, length, circumference, offset float64) {
	if length <= 0 {
		return
	}
	fmt.Fprintf(sb, `    <circle cx="%d" cy="%d" r="%.2f" fill="none" stroke="%s" stroke-width="%.2f" stroke-dasharray="%.2f %.2f" stroke-dashoffset="%.2f"><title>%s: %d%%</title></circle>`,
		center, center, ringRadius, color, ringWidth, length, circumference-length, offset, label, value)
	sb.WriteString("\n")
}
