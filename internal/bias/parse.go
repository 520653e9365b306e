package bias

import (
	"math"
	"regexp"
	"strconv"

	"github.com/pep299/article-bias-analyzer/internal/model"
)

var (
	leftPattern  = regexp.MustCompile(`(?i)left.*?(\d+)%`)
	rightPattern = regexp.MustCompile(`(?i)right.*?(\d+)%`)
)

// ParseEstimate extracts and normalizes the left/right split from a model
// reply. A missing value counts as 0. Each side is rounded on its own, so
// 1%/7% comes out as 13/88. When nothing is found the estimate is 0/0 and
// marked degenerate.
func ParseEstimate(raw string) model.Estimate {
	left := firstPercentage(leftPattern, raw)
	right := firstPercentage(rightPattern, raw)

	est := model.Estimate{Raw: raw}

	total := left + right
	if total <= 0 {
		est.Degenerate = true
		return est
	}

	est.Left = int(math.Round(left / total * 100))
	est.Right = int(math.Round(right / total * 100))
	return est
}

func firstPercentage(pattern *regexp.Regexp, raw string) float64 {
	match := pattern.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return n
}
