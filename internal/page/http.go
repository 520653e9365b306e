package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
	"github.com/pep299/article-bias-analyzer/internal/model"
)

const maxPageBytes = 5 << 20

// HTTPMessenger answers getArticleContent by fetching the page itself and
// extracting the main article text. It plays the content script's role
// when there is no browser tab.
type HTTPMessenger struct {
	httpClient *http.Client
	userAgent  string
	maxChars   int
}

// NewHTTPMessenger creates a messenger; text longer than maxChars is cut
func NewHTTPMessenger(timeout time.Duration, maxChars int) *HTTPMessenger {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &HTTPMessenger{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "Mozilla/5.0 (compatible; Article Bias Analyzer/1.0)",
		maxChars:   maxChars,
	}
}

// Send fetches pageURL. Pages that are not http or https are unsupported.
// Network failures and non-200 answers are returned as errors; a page
// without extractable text yields an empty response.
func (m *HTTPMessenger) Send(ctx context.Context, pageURL string, req Request) (*Response, error) {
	if req.Action != ActionGetArticleContent {
		return nil, fmt.Errorf("unsupported action: %s", req.Action)
	}

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperror.New(apperror.KindUnsupportedPage, "get article content", "only http and https pages can be analyzed")
	}

	html, err := m.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article := m.extract(html, u)
	if article == nil {
		return &Response{}, nil
	}
	return &Response{ArticleContent: article}, nil
}

// fetchHTML fetches HTML content from a URL
func (m *HTTPMessenger) fetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// extract runs readability first and falls back to content selectors
func (m *HTTPMessenger) extract(html []byte, u *url.URL) *model.Article {
	var title, text string

	if parsed, err := readability.FromReader(bytes.NewReader(html), u); err == nil {
		title = strings.TrimSpace(parsed.Title)
		text = strings.TrimSpace(parsed.TextContent)
	}

	if title == "" || text == "" {
		fbTitle, fbText := selectorFallback(html)
		if title == "" {
			title = fbTitle
		}
		if text == "" {
			text = fbText
		}
	}

	if text == "" {
		return nil
	}
	if r := []rune(text); len(r) > m.maxChars {
		text = string(r[:m.maxChars])
	}

	return &model.Article{Title: title, Text: text, URL: u.String()}
}

var contentSelectors = []string{"article", "[role='main']", "main", ".post-content", ".article-content", ".entry-content", ".content"}

// selectorFallback pulls a title and paragraph text with goquery
func selectorFallback(html []byte) (string, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", ""
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if strings.TrimSpace(title) == "" {
		title = doc.Find("title").First().Text()
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	var sb strings.Builder
	collect := func(sel *goquery.Selection) {
		sel.Find("p, h1, h2, h3, li").Each(func(i int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n\n")
			}
		})
	}

	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			collect(sel)
			break
		}
	}
	if sb.Len() == 0 {
		collect(doc.Find("body"))
	}

	return strings.TrimSpace(title), strings.TrimSpace(sb.String())
}
