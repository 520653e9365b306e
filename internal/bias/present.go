package bias

import (
	"time"

	"github.com/google/uuid"

	"github.com/pep299/article-bias-analyzer/internal/model"
)

// Present packages an estimate with its article for display
func Present(est model.Estimate, article model.Article) model.Payload {
	return model.Payload{
		ID:         uuid.NewString(),
		Raw:        est.Raw,
		Left:       est.Left,
		Right:      est.Right,
		Degenerate: est.Degenerate,
		Title:      article.Title,
		URL:        article.URL,
		AnalyzedAt: time.Now().UTC(),
	}
}
