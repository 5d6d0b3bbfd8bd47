package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
)

const (
	webUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	maxRedirects    = 5
	defaultMaxChars = 20000
	jinaSearchURL   = "https://s.jina.ai"
	jinaReaderURL   = "https://r.jina.ai"
	maxQueryLength  = 100
)

// validateURL checks that url is http(s) with a valid domain.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}

// JinaClient talks to the Jina search and reader endpoints.
type JinaClient struct {
	apiKey     string
	searchURL  string
	readerURL  string
	httpClient *http.Client
}

// NewJinaClient creates a JinaClient. apiKey is JINAI_API_KEY.
func NewJinaClient(apiKey string) *JinaClient {
	return &JinaClient{
		apiKey:     apiKey,
		searchURL:  jinaSearchURL,
		readerURL:  jinaReaderURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithEndpoints overrides the search and reader base URLs.
func (c *JinaClient) WithEndpoints(searchURL, readerURL string) *JinaClient {
	c.searchURL = strings.TrimRight(searchURL, "/")
	c.readerURL = strings.TrimRight(readerURL, "/")
	return c
}

// Configured reports whether an API key is set.
func (c *JinaClient) Configured() bool { return c != nil && c.apiKey != "" }

func (c *JinaClient) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("jina returned %d: %s", resp.StatusCode, llmutils.Truncate(string(body), 200))
	}
	return string(body), nil
}

// ---------------------------------------------------------------------------
// SearchInternet
// ---------------------------------------------------------------------------

// SearchInternetTool searches the web through Jina search.
type SearchInternetTool struct {
	client   *JinaClient
	maxChars int
}

func NewSearchInternetTool(client *JinaClient, maxChars int) *SearchInternetTool {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &SearchInternetTool{client: client, maxChars: maxChars}
}

func (t *SearchInternetTool) Name() string { return string(ToolSearchInternet) }
func (t *SearchInternetTool) Description() string {
	return "Search the internet given a query. Response is returned as a string."
}
func (t *SearchInternetTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The query to search the internet for.",
				"maxLength": 100
			}
		},
		"required": ["query"]
	}`)
}

func (t *SearchInternetTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.client.Configured() {
		return "", errors.New("JINAI_API_KEY not configured")
	}
	query := stringArg(params, "query")
	if query == "" {
		return "", errors.New("query is required")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return "", fmt.Errorf("query must be at most %d characters", maxQueryLength)
	}

	text, err := t.client.get(ctx, t.client.searchURL+"/"+url.PathEscape(query))
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Sprintf("No results for: %s", query), nil
	}
	return llmutils.Truncate(text, t.maxChars), nil
}

// ---------------------------------------------------------------------------
// ReadWebsite
// ---------------------------------------------------------------------------

// ReadWebsiteTool returns the readable content of a web page. It uses the
// Jina reader when a key is configured and fetches the page directly otherwise.
type ReadWebsiteTool struct {
	client     *JinaClient
	maxChars   int
	httpClient *http.Client
}

// NewReadWebsiteTool creates a ReadWebsiteTool. maxChars defaults to 20000.
func NewReadWebsiteTool(client *JinaClient, maxChars int) *ReadWebsiteTool {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &ReadWebsiteTool{client: client, maxChars: maxChars, httpClient: httpClient}
}

func (t *ReadWebsiteTool) Name() string { return string(ToolReadWebsite) }
func (t *ReadWebsiteTool) Description() string {
	return "Read the content of a website given a URL. Response is returned as a string."
}
func (t *ReadWebsiteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "URL to read"
			}
		},
		"required": ["url"]
	}`)
}

// ValidateArgs rejects non-http(s) URLs before any request is made.
func (t *ReadWebsiteTool) ValidateArgs(params map[string]any) error {
	if err := validateURL(stringArg(params, "url")); err != nil {
		return fmt.Errorf("URL validation failed: %w", err)
	}
	return nil
}

func (t *ReadWebsiteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	rawURL := stringArg(params, "url")

	var (
		text string
		err  error
	)
	if t.client.Configured() {
		text, err = t.client.get(ctx, t.client.readerURL+"/"+rawURL)
	} else {
		text, err = t.fetch(ctx, rawURL)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return llmutils.Truncate(text, t.maxChars), nil
}

// fetch downloads the page and extracts its article content.
func (t *ReadWebsiteTool) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	ctype := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ctype, "application/json"):
		var jsonData any
		if err := json.Unmarshal(bodyBytes, &jsonData); err == nil {
			formatted, _ := json.MarshalIndent(jsonData, "", "  ")
			return string(formatted), nil
		}
		return string(bodyBytes), nil

	case strings.Contains(ctype, "text/html") || isHTMLPrefix(bodyBytes):
		parsedURL, _ := url.Parse(rawURL)
		article, err := readability.FromReader(bytes.NewReader(bodyBytes), parsedURL)
		if err != nil {
			return stripHTMLTags(string(bodyBytes)), nil
		}
		text := htmlToMarkdown(article.Content)
		if article.Title != "" {
			text = "# " + article.Title + "\n\n" + text
		}
		return text, nil
	}
	return string(bodyBytes), nil
}

// isHTMLPrefix returns true if the body starts with an HTML declaration.
func isHTMLPrefix(b []byte) bool {
	prefix := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}

// ---------------------------------------------------------------------------
// HTML → text/markdown helpers
// ---------------------------------------------------------------------------

var (
	reScript    = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	reStyle     = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	reTags      = regexp.MustCompile(`<[^>]+>`)
	reSpaces    = regexp.MustCompile(`[ \t]+`)
	reNewlines  = regexp.MustCompile(`\n{3,}`)
	reLinks     = regexp.MustCompile(`(?is)<a\s+[^>]*href=["']([^"']+)["'][^>]*>([\s\S]*?)</a>`)
	reHeadings  = regexp.MustCompile(`(?is)<h([1-6])[^>]*>([\s\S]*?)</h[1-6]>`)
	reListItems = regexp.MustCompile(`(?is)<li[^>]*>([\s\S]*?)</li>`)
	reBlockEnd  = regexp.MustCompile(`(?is)</(p|div|section|article)>`)
	reLineBreak = regexp.MustCompile(`(?is)<(br|hr)\s*/?>`)
)

// stripHTMLTags removes all HTML tags and normalizes whitespace.
func stripHTMLTags(text string) string {
	text = reScript.ReplaceAllString(text, "")
	text = reStyle.ReplaceAllString(text, "")
	text = reTags.ReplaceAllString(text, "")
	return normalizeWhitespace(text)
}

// htmlToMarkdown converts article HTML to light markdown: links, headings,
// list items and paragraph breaks.
func htmlToMarkdown(htmlText string) string {
	text := reLinks.ReplaceAllStringFunc(htmlText, func(m string) string {
		parts := reLinks.FindStringSubmatch(m)
		if len(parts) < 3 {
			return m
		}
		return fmt.Sprintf("[%s](%s)", stripHTMLTags(parts[2]), parts[1])
	})
	text = reHeadings.ReplaceAllStringFunc(text, func(m string) string {
		parts := reHeadings.FindStringSubmatch(m)
		if len(parts) < 3 {
			return m
		}
		level := int(parts[1][0] - '0')
		return fmt.Sprintf("\n%s %s\n", strings.Repeat("#", level), stripHTMLTags(parts[2]))
	})
	text = reListItems.ReplaceAllStringFunc(text, func(m string) string {
		parts := reListItems.FindStringSubmatch(m)
		if len(parts) < 2 {
			return m
		}
		return "\n- " + stripHTMLTags(parts[1])
	})
	text = reBlockEnd.ReplaceAllString(text, "\n\n")
	text = reLineBreak.ReplaceAllString(text, "\n")
	return stripHTMLTags(text)
}

func normalizeWhitespace(text string) string {
	text = reSpaces.ReplaceAllString(text, " ")
	text = reNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
