package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchInternetUsesJina(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("1. Colosseum - Rome"))
	}))
	defer srv.Close()

	client := NewJinaClient("secret").WithEndpoints(srv.URL, srv.URL)
	out, err := NewSearchInternetTool(client, 0).Execute(context.Background(), map[string]any{"query": "best gelato rome"})

	require.NoError(t, err)
	assert.Equal(t, "1. Colosseum - Rome", out)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/best%20gelato%20rome", gotPath)
}

func TestSearchInternetErrors(t *testing.T) {
	_, err := NewSearchInternetTool(NewJinaClient(""), 0).Execute(context.Background(), map[string]any{"query": "x"})
	assert.ErrorContains(t, err, "JINAI_API_KEY")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewJinaClient("k").WithEndpoints(srv.URL, srv.URL)
	_, err = NewSearchInternetTool(client, 0).Execute(context.Background(), map[string]any{"query": "x"})
	assert.ErrorContains(t, err, "429")
}

func TestSearchInternetCountsCharactersNotBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	tool := NewSearchInternetTool(NewJinaClient("k").WithEndpoints(srv.URL, srv.URL), 0)

	out, err := tool.Execute(context.Background(), map[string]any{"query": strings.Repeat("é", 60)})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = tool.Execute(context.Background(), map[string]any{"query": strings.Repeat("é", maxQueryLength+1)})
	assert.ErrorContains(t, err, "at most 100 characters")
}

func TestReadWebsiteThroughJinaReader(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(strings.Repeat("a", 50)))
	}))
	defer srv.Close()

	client := NewJinaClient("k").WithEndpoints(srv.URL, srv.URL)
	out, err := NewReadWebsiteTool(client, 10).Execute(context.Background(), map[string]any{"url": "https://example.com/page"})

	require.NoError(t, err)
	assert.Equal(t, "/https://example.com/page", gotPath)
	assert.Equal(t, strings.Repeat("a", 10)+"...", out)
}

func TestReadWebsiteDirectFetchExtractsArticle(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Pantheon</title></head><body>
<article><h1>Pantheon</h1><p>The Pantheon is a former Roman temple, now a church, in Rome. It was completed by the emperor Hadrian
and probably dedicated about 126 AD. Its date of construction is uncertain, because Agrippa's original temple burned down.</p>
<p>The building is cylindrical with a portico of large granite Corinthian columns under a pediment.</p></article>
<script>track()</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	out, err := NewReadWebsiteTool(NewJinaClient(""), 0).Execute(context.Background(), map[string]any{"url": srv.URL})

	require.NoError(t, err)
	assert.Contains(t, out, "former Roman temple")
	assert.NotContains(t, out, "track()")
	assert.NotContains(t, out, "<p>")
}

func TestReadWebsiteValidateArgs(t *testing.T) {
	tool := NewReadWebsiteTool(NewJinaClient(""), 0)
	assert.Error(t, tool.ValidateArgs(map[string]any{"url": "file:///etc/passwd"}))
	assert.Error(t, tool.ValidateArgs(map[string]any{"url": "https://"}))
	assert.NoError(t, tool.ValidateArgs(map[string]any{"url": "https://example.com"}))
}

func TestHTMLToMarkdown(t *testing.T) {
	md := htmlToMarkdown(`<h2>Menu</h2><ul><li>Pizza</li><li>Pasta</li></ul><p>See <a href="https://x.test">site</a></p>`)
	assert.Contains(t, md, "## Menu")
	assert.Contains(t, md, "- Pizza")
	assert.Contains(t, md, "[site](https://x.test)")
}
