package bias

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
	"github.com/pep299/article-bias-analyzer/internal/cache"
	"github.com/pep299/article-bias-analyzer/internal/metrics"
	"github.com/pep299/article-bias-analyzer/internal/model"
	"github.com/pep299/article-bias-analyzer/internal/openai"
	"github.com/pep299/article-bias-analyzer/internal/page"
)

const defaultTimeout = 60 * time.Second

// Completer sends chat messages to the model provider
type Completer interface {
	ChatCompletion(ctx context.Context, apiKey string, messages []openai.Message) (string, error)
	Model() string
}

// CredentialSource hands out the session key when one is usable
type CredentialSource interface {
	Require() (string, error)
}

// ContentSource fetches the article behind a page URL
type ContentSource interface {
	Extract(ctx context.Context, pageURL string) (*model.Article, error)
}

// Analyzer runs the analysis cycle, one provider request at a time per article
type Analyzer struct {
	completer   Completer
	credentials CredentialSource
	content     ContentSource
	cache       *cache.Manager
	metrics     *metrics.Metrics
	logger      *zap.Logger
	timeout     time.Duration
	group       singleflight.Group
}

// Options holds the analyzer's optional collaborators
type Options struct {
	Content ContentSource
	Cache   *cache.Manager
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// Timeout bounds one provider round trip shared by concurrent callers
	Timeout time.Duration
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(completer Completer, credentials CredentialSource, opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Analyzer{
		completer:   completer,
		credentials: credentials,
		content:     opts.Content,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		logger:      logger,
		timeout:     timeout,
	}
}

// RequestEstimate sends prompt with token and returns the raw reply. A
// 401 or 403 means the key was rejected; any other provider status is a
// provider error carrying that status and message.
func (a *Analyzer) RequestEstimate(ctx context.Context, prompt Prompt, token string) (string, error) {
	raw, err := a.completer.ChatCompletion(ctx, token, prompt.Messages())
	if err == nil {
		return raw, nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := apperror.KindProvider
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			kind = apperror.KindCredentialRejected
		}
		return "", &apperror.Error{
			Kind:    kind,
			Op:      "request estimate",
			Status:  apiErr.StatusCode,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	if apperror.KindOf(err) != apperror.KindUnknown {
		return "", err
	}
	return "", apperror.Wrap(apperror.KindTransport, "request estimate", err)
}

// Analyze scores an article supplied by the caller. Concurrent calls for
// the same content share one provider request, and a cached estimate is
// returned when present.
func (a *Analyzer) Analyze(ctx context.Context, article model.Article) (*model.Payload, error) {
	token, err := a.credentials.Require()
	if err != nil {
		a.metrics.Analysis(apperror.KindOf(err).String())
		return nil, err
	}

	if article.URL != "" {
		if err := page.CheckURL(article.URL); err != nil {
			a.metrics.Analysis(apperror.KindOf(err).String())
			return nil, err
		}
	}

	return a.analyze(ctx, article, token, cache.GenerateArticleKey(article))
}

// AnalyzeURL fetches the article behind pageURL and scores it. The key and
// the page are checked first so nothing is fetched without both.
func (a *Analyzer) AnalyzeURL(ctx context.Context, pageURL string) (*model.Payload, error) {
	token, err := a.credentials.Require()
	if err != nil {
		a.metrics.Analysis(apperror.KindOf(err).String())
		return nil, err
	}
	if err := page.CheckURL(pageURL); err != nil {
		a.metrics.Analysis(apperror.KindOf(err).String())
		return nil, err
	}
	if a.content == nil {
		return nil, apperror.New(apperror.KindContentUnavailable, "analyze url", "no content source configured")
	}

	key := cache.GenerateKey(pageURL)
	if payload, ok := a.cached(ctx, key); ok {
		return payload, nil
	}

	article, err := a.content.Extract(ctx, pageURL)
	if err != nil {
		a.metrics.Analysis(apperror.KindOf(err).String())
		return nil, err
	}
	return a.analyze(ctx, *article, token, key)
}

// ForgetURL drops the cached estimate for a page fetched by AnalyzeURL
func (a *Analyzer) ForgetURL(ctx context.Context, pageURL string) error {
	return a.forget(ctx, cache.GenerateKey(pageURL))
}

// ForgetArticle drops the cached estimate for an article given to Analyze
func (a *Analyzer) ForgetArticle(ctx context.Context, article model.Article) error {
	return a.forget(ctx, cache.GenerateArticleKey(article))
}

func (a *Analyzer) forget(ctx context.Context, key string) error {
	removed, err := a.cache.Invalidate(ctx, key)
	if err != nil {
		return fmt.Errorf("invalidating cached estimate: %w", err)
	}
	if removed {
		a.logger.Debug("cached estimate dropped", zap.String("key", key))
	}
	return nil
}

// analyze serves article from cache or runs it once per key. The shared
// run is detached from any single caller, so a caller that goes away only
// abandons its own wait.
func (a *Analyzer) analyze(ctx context.Context, article model.Article, token, key string) (*model.Payload, error) {
	if strings.TrimSpace(article.Text) == "" {
		a.metrics.Analysis(apperror.KindNoContent.String())
		return nil, apperror.New(apperror.KindNoContent, "analyze", "no article content found on this page")
	}

	if payload, ok := a.cached(ctx, key); ok {
		return payload, nil
	}

	ch := a.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.run(runCtx, article, token, key)
	})

	select {
	case <-ctx.Done():
		return nil, apperror.Wrap(apperror.KindTransport, "analyze", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			a.logger.Debug("shared in-flight analysis", zap.String("url", article.URL))
		}
		payload := *res.Val.(*model.Payload)
		return &payload, nil
	}
}

func (a *Analyzer) cached(ctx context.Context, key string) (*model.Payload, bool) {
	payload, err := a.cache.GetEstimate(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.logger.Warn("estimate cache lookup failed", zap.Error(err))
		}
		return nil, false
	}
	a.metrics.Analysis("cached")
	return payload, true
}

// run performs prompt, request, parse and present for one article
func (a *Analyzer) run(ctx context.Context, article model.Article, token, key string) (*model.Payload, error) {
	start := time.Now()
	defer func() { a.metrics.AnalysisSeconds(time.Since(start).Seconds()) }()

	prompt := BuildPrompt(article)

	raw, err := a.RequestEstimate(ctx, prompt, token)
	if err != nil {
		a.metrics.Analysis(apperror.KindOf(err).String())
		a.logger.Warn("estimate request failed",
			zap.String("url", article.URL),
			zap.Error(err))
		return nil, err
	}

	est := ParseEstimate(raw)
	payload := Present(est, article)
	payload.Model = a.completer.Model()

	if est.Degenerate {
		// not cached so a retry asks the model again
		a.metrics.Analysis("degenerate")
		a.logger.Warn("model reply had no percentages",
			zap.String("url", article.URL),
			zap.String("raw", raw))
	} else {
		a.metrics.Analysis("ok")
		if err := a.cache.SetEstimate(ctx, key, payload); err != nil {
			a.logger.Warn("caching estimate failed", zap.Error(err))
		}
	}

	a.logger.Info("article analyzed",
		zap.String("url", article.URL),
		zap.Int("left", payload.Left),
		zap.Int("right", payload.Right),
		zap.Duration("elapsed", time.Since(start)))

	return &payload, nil
}
