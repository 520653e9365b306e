// Package page obtains article content for the analyzer. It guards
// against browser-internal pages and talks to the content collaborator
// through the getArticleContent message.
package page

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
	"github.com/pep299/article-bias-analyzer/internal/model"
)

// ActionGetArticleContent is the only message the collaborator answers
const ActionGetArticleContent = "getArticleContent"

// restrictedPrefixes are browser- or extension-internal pages that must
// never be sent to the content collaborator.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"moz-extension://",
	"edge://",
	"about:",
	"view-source:",
	"devtools://",
	"safari-web-extension://",
}

// Request is sent to the content collaborator
type Request struct {
	Action string `json:"action"`
}

// Response is the collaborator's answer; ArticleContent is nil when the
// page has nothing to offer.
type Response struct {
	ArticleContent *model.Article `json:"articleContent,omitempty"`
}

// Messenger delivers a request to the collaborator attached to pageURL.
// An error means the collaborator could not be reached.
type Messenger interface {
	Send(ctx context.Context, pageURL string, req Request) (*Response, error)
}

// CheckURL rejects restricted pages
func CheckURL(pageURL string) error {
	lower := strings.ToLower(strings.TrimSpace(pageURL))
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return apperror.New(apperror.KindUnsupportedPage, "check page", "restricted page: "+prefix)
		}
	}
	return nil
}

// Extractor fetches article content through a Messenger
type Extractor struct {
	messenger Messenger
	logger    *zap.Logger
}

// NewExtractor creates an extractor over messenger
func NewExtractor(messenger Messenger, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{messenger: messenger, logger: logger}
}

// Extract returns the article for pageURL. Restricted pages are rejected
// before any message is sent.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*model.Article, error) {
	if err := CheckURL(pageURL); err != nil {
		return nil, err
	}

	resp, err := e.messenger.Send(ctx, pageURL, Request{Action: ActionGetArticleContent})
	if apperror.KindOf(err) == apperror.KindUnsupportedPage {
		return nil, err
	}
	if err != nil {
		e.logger.Warn("content collaborator unavailable", zap.String("url", pageURL), zap.Error(err))
		return nil, apperror.Wrap(apperror.KindContentUnavailable, "get article content", err)
	}

	if resp == nil || resp.ArticleContent == nil || strings.TrimSpace(resp.ArticleContent.Text) == "" {
		return nil, apperror.New(apperror.KindNoContent, "get article content", "no article content found on this page")
	}

	article := *resp.ArticleContent
	if article.URL == "" {
		article.URL = pageURL
	}
	return &article, nil
}
