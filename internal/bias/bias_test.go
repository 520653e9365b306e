package bias

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
	"github.com/pep299/article-bias-analyzer/internal/cache"
	"github.com/pep299/article-bias-analyzer/internal/model"
	"github.com/pep299/article-bias-analyzer/internal/openai"
)

type fakeCompleter struct {
	reply    string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	messages []openai.Message
	apiKey   string
	mu       sync.Mutex
}

func (f *fakeCompleter) ChatCompletion(ctx context.Context, apiKey string, messages []openai.Message) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.messages = messages
	f.apiKey = apiKey
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string { return "gpt-3.5-turbo" }

type fakeCredentials struct {
	token string
}

func (f fakeCredentials) Require() (string, error) {
	if f.token == "" {
		return "", apperror.New(apperror.KindMissingCredential, "require key", "no valid API key saved")
	}
	return f.token, nil
}

type fakeContent struct {
	article *model.Article
	err     error
	calls   int
}

func (f *fakeContent) Extract(ctx context.Context, pageURL string) (*model.Article, error) {
	f.calls++
	return f.article, f.err
}

const testKey = "sk-aaaaaaaaaaaaaaaaaaaaaaaa"

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(model.Article{Title: "Budget Vote", Text: "The council met."})

	assert.Equal(t, SystemInstruction, prompt.System)
	assert.Contains(t, prompt.System, "Left leaning: X%")
	assert.Contains(t, prompt.System, "Right leaning: Y%")
	assert.Equal(t,
		"Analyze the following article and provide the left vs. right leaning percentages: Budget Vote\n\nThe council met.",
		prompt.User)

	messages := prompt.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
}

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		left       int
		right      int
		degenerate bool
	}{
		{"canonical", "- Left leaning: 70%\n- Right leaning: 30%", 70, 30, false},
		{"case insensitive", "LEFT: 40% / RIGHT: 60%", 40, 60, false},
		{"only left", "Left leaning: 30%", 100, 0, false},
		{"only right", "Right leaning: 45%", 0, 100, false},
		{"no match", "I cannot determine the bias.", 0, 0, true},
		{"zero both", "Left leaning: 0%\nRight leaning: 0%", 0, 0, true},
		{"unnormalized", "Left leaning: 30%\nRight leaning: 30%", 50, 50, false},
		{"rounding artifact", "Left leaning: 1%\nRight leaning: 7%", 13, 88, false},
		{"ignores percent without label", "50% Left leaning: 20% Right leaning: 80%", 20, 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := ParseEstimate(tt.raw)
			assert.Equal(t, tt.left, est.Left)
			assert.Equal(t, tt.right, est.Right)
			assert.Equal(t, tt.degenerate, est.Degenerate)
			assert.Equal(t, tt.raw, est.Raw)
		})
	}
}

func TestParseEstimateSumsToHundredWithinRounding(t *testing.T) {
	for l := 0; l <= 100; l++ {
		for r := 0; r <= 100; r++ {
			if l+r == 0 {
				continue
			}
			est := ParseEstimate(fmt.Sprintf("Left leaning: %d%%\nRight leaning: %d%%", l, r))
			sum := est.Left + est.Right
			if sum < 99 || sum > 101 {
				t.Fatalf("%d/%d normalized to %d/%d (sum %d)", l, r, est.Left, est.Right, sum)
			}
			wantLeft := int(math.Round(float64(l) / float64(l+r) * 100))
			wantRight := int(math.Round(float64(r) / float64(l+r) * 100))
			if est.Left != wantLeft || est.Right != wantRight {
				t.Fatalf("%d/%d normalized to %d/%d, want %d/%d", l, r, est.Left, est.Right, wantLeft, wantRight)
			}
		}
	}
}

func TestPresent(t *testing.T) {
	article := model.Article{Title: "T", Text: "body", URL: "https://example.com/a"}
	payload := Present(model.Estimate{Left: 70, Right: 30, Raw: "raw"}, article)

	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, 70, payload.Left)
	assert.Equal(t, 30, payload.Right)
	assert.Equal(t, "T", payload.Title)
	assert.Equal(t, "https://example.com/a", payload.URL)
	assert.Equal(t, "raw", payload.Raw)
	assert.False(t, payload.AnalyzedAt.IsZero())
}

func TestAnalyzeEndToEnd(t *testing.T) {
	completer := &fakeCompleter{reply: "- Left leaning: 70%\n- Right leaning: 30%"}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{})

	payload, err := analyzer.Analyze(context.Background(), model.Article{
		Title: "Budget Vote",
		Text:  "The council passed a budget.",
		URL:   "https://example.com/budget",
	})
	require.NoError(t, err)

	assert.Equal(t, 70, payload.Left)
	assert.Equal(t, 30, payload.Right)
	assert.Equal(t, "Budget Vote", payload.Title)
	assert.Equal(t, "https://example.com/budget", payload.URL)
	assert.Equal(t, "gpt-3.5-turbo", payload.Model)
	assert.False(t, payload.Cached)

	assert.Equal(t, testKey, completer.apiKey)
	require.Len(t, completer.messages, 2)
	assert.True(t, strings.HasSuffix(completer.messages[1].Content, "Budget Vote\n\nThe council passed a budget."))
}

func TestAnalyzeWithoutKeySendsNothing(t *testing.T) {
	completer := &fakeCompleter{}
	analyzer := NewAnalyzer(completer, fakeCredentials{}, Options{})

	_, err := analyzer.Analyze(context.Background(), model.Article{Text: "body"})

	assert.True(t, apperror.Is(err, apperror.KindMissingCredential))
	assert.Equal(t, int32(0), completer.calls.Load())
}

func TestAnalyzeDegenerateReply(t *testing.T) {
	analyzer := NewAnalyzer(&fakeCompleter{reply: "No opinion."}, fakeCredentials{token: testKey}, Options{})

	payload, err := analyzer.Analyze(context.Background(), model.Article{Text: "body"})
	require.NoError(t, err)
	assert.True(t, payload.Degenerate)
	assert.Equal(t, 0, payload.Left)
	assert.Equal(t, 0, payload.Right)
	assert.Equal(t, "No opinion.", payload.Raw)
}

func TestRequestEstimateErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   apperror.Kind
		status int
	}{
		{"unauthorized", &openai.APIError{StatusCode: 401, Message: "Incorrect API key"}, apperror.KindCredentialRejected, 401},
		{"forbidden", &openai.APIError{StatusCode: 403, Message: "Forbidden"}, apperror.KindCredentialRejected, 403},
		{"rate limited", &openai.APIError{StatusCode: 429, Message: "Rate limit reached"}, apperror.KindProvider, 429},
		{"server error", &openai.APIError{StatusCode: 500, Message: "oops"}, apperror.KindProvider, 500},
		{"malformed", apperror.New(apperror.KindMalformedResponse, "chat completion", "no choices"), apperror.KindMalformedResponse, 0},
		{"network", errors.New("connection refused"), apperror.KindTransport, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(&fakeCompleter{err: tt.err}, fakeCredentials{token: testKey}, Options{})

			_, err := analyzer.RequestEstimate(context.Background(), BuildPrompt(model.Article{Text: "x"}), testKey)

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	manager, err := cache.NewManager(cache.Options{Type: "memory", Duration: time.Hour})
	require.NoError(t, err)
	defer manager.Close()

	completer := &fakeCompleter{reply: "Left leaning: 60%\nRight leaning: 40%"}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Cache: manager})
	article := model.Article{Title: "T", Text: "body", URL: "https://example.com/cached"}

	first, err := analyzer.Analyze(context.Background(), article)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := analyzer.Analyze(context.Background(), article)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), completer.calls.Load())
}

func TestAnalyzeDoesNotCacheDegenerate(t *testing.T) {
	manager, err := cache.NewManager(cache.Options{Duration: time.Hour})
	require.NoError(t, err)
	defer manager.Close()

	completer := &fakeCompleter{reply: "unclear"}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Cache: manager})
	article := model.Article{Text: "body", URL: "https://example.com/unclear"}

	for i := 0; i < 2; i++ {
		_, err := analyzer.Analyze(context.Background(), article)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), completer.calls.Load())
}

func TestAnalyzeSharesInFlightRequest(t *testing.T) {
	completer := &fakeCompleter{reply: "Left leaning: 50%\nRight leaning: 50%", delay: 100 * time.Millisecond}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{})
	article := model.Article{Text: "body", URL: "https://example.com/busy"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := analyzer.Analyze(context.Background(), article)
			assert.NoError(t, err)
			assert.Equal(t, 50, payload.Left)
		}()
	}
	wg.Wait()

	assert.Less(t, completer.calls.Load(), int32(5))
}

func TestAnalyzeURL(t *testing.T) {
	t.Run("fetches and scores", func(t *testing.T) {
		content := &fakeContent{article: &model.Article{Title: "T", Text: "body", URL: "https://example.com/x"}}
		analyzer := NewAnalyzer(&fakeCompleter{reply: "Left leaning: 20%\nRight leaning: 80%"},
			fakeCredentials{token: testKey}, Options{Content: content})

		payload, err := analyzer.AnalyzeURL(context.Background(), "https://example.com/x")
		require.NoError(t, err)
		assert.Equal(t, 20, payload.Left)
		assert.Equal(t, 80, payload.Right)
	})

	t.Run("missing key skips fetch", func(t *testing.T) {
		content := &fakeContent{}
		analyzer := NewAnalyzer(&fakeCompleter{}, fakeCredentials{}, Options{Content: content})

		_, err := analyzer.AnalyzeURL(context.Background(), "https://example.com/x")
		assert.True(t, apperror.Is(err, apperror.KindMissingCredential))
		assert.Equal(t, 0, content.calls)
	})

	t.Run("content error passes through", func(t *testing.T) {
		content := &fakeContent{err: apperror.New(apperror.KindNoContent, "extract", "empty page")}
		completer := &fakeCompleter{}
		analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Content: content})

		_, err := analyzer.AnalyzeURL(context.Background(), "https://example.com/empty")
		assert.True(t, apperror.Is(err, apperror.KindNoContent))
		assert.Equal(t, int32(0), completer.calls.Load())
	})

	t.Run("restricted page is never fetched", func(t *testing.T) {
		content := &fakeContent{}
		completer := &fakeCompleter{}
		analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Content: content})

		_, err := analyzer.AnalyzeURL(context.Background(), "chrome://settings")
		assert.True(t, apperror.Is(err, apperror.KindUnsupportedPage))
		assert.Equal(t, 0, content.calls)
		assert.Equal(t, int32(0), completer.calls.Load())
	})

	t.Run("refetch after forget", func(t *testing.T) {
		manager, err := cache.NewManager(cache.Options{Duration: time.Hour})
		require.NoError(t, err)
		defer manager.Close()

		content := &fakeContent{article: &model.Article{Title: "T", Text: "body", URL: "https://example.com/x"}}
		completer := &fakeCompleter{reply: "Left leaning: 20%\nRight leaning: 80%"}
		analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Content: content, Cache: manager})
		ctx := context.Background()

		_, err = analyzer.AnalyzeURL(ctx, "https://example.com/x")
		require.NoError(t, err)
		cached, err := analyzer.AnalyzeURL(ctx, "https://example.com/x")
		require.NoError(t, err)
		assert.True(t, cached.Cached)
		assert.Equal(t, 1, content.calls)

		require.NoError(t, analyzer.ForgetURL(ctx, "https://example.com/x"))
		fresh, err := analyzer.AnalyzeURL(ctx, "https://example.com/x")
		require.NoError(t, err)
		assert.False(t, fresh.Cached)
		assert.Equal(t, 2, content.calls)
		assert.Equal(t, int32(2), completer.calls.Load())
	})
}

func TestAnalyzeRejectsRestrictedArticleURL(t *testing.T) {
	completer := &fakeCompleter{reply: "Left leaning: 50%\nRight leaning: 50%"}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{})

	_, err := analyzer.Analyze(context.Background(), model.Article{Title: "Settings", Text: "settings", URL: "chrome://settings"})

	assert.True(t, apperror.Is(err, apperror.KindUnsupportedPage))
	assert.Equal(t, int32(0), completer.calls.Load())
}

func TestAnalyzeKeysCacheOnContent(t *testing.T) {
	manager, err := cache.NewManager(cache.Options{Duration: time.Hour})
	require.NoError(t, err)
	defer manager.Close()

	completer := &fakeCompleter{reply: "Left leaning: 90%\nRight leaning: 10%"}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{Cache: manager})
	ctx := context.Background()

	first, err := analyzer.Analyze(ctx, model.Article{Title: "A", Text: "one", URL: "https://x/y"})
	require.NoError(t, err)
	assert.Equal(t, "A", first.Title)

	completer.reply = "Left leaning: 30%\nRight leaning: 70%"
	second, err := analyzer.Analyze(ctx, model.Article{Title: "B", Text: "totally different", URL: "https://x/y"})
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, "B", second.Title)
	assert.Equal(t, 30, second.Left)
	assert.Equal(t, int32(2), completer.calls.Load())

	// Same content is still served from cache
	again, err := analyzer.Analyze(ctx, model.Article{Title: "A", Text: "one", URL: "https://x/y"})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, "A", again.Title)
}

func TestAnalyzeSharedRequestSurvivesCancelledCaller(t *testing.T) {
	completer := &fakeCompleter{reply: "Left leaning: 50%\nRight leaning: 50%", delay: 200 * time.Millisecond}
	analyzer := NewAnalyzer(completer, fakeCredentials{token: testKey}, Options{})
	article := model.Article{Text: "body", URL: "https://example.com/shared"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := analyzer.Analyze(ctxA, article)
		errA <- err
	}()

	// Let the first caller start the shared request before joining it
	time.Sleep(10 * time.Millisecond)
	type result struct {
		payload *model.Payload
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		payload, err := analyzer.Analyze(context.Background(), article)
		resB <- result{payload, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)

	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, 50, b.payload.Left)
	assert.Equal(t, int32(1), completer.calls.Load())
}
