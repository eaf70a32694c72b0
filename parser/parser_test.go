package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() string {
	para := strings.Repeat("Espresso extraction depends on grind size, dose and water temperature. ", 12)
	return `<html><head><title>Brewing guide</title>
<meta property="og:image" content="/img/cover.jpg">
</head><body><article><h1>Brewing guide</h1><p>` + para + `</p><p>` + para + `</p></article></body></html>`
}

func TestParseArticle(t *testing.T) {
	article, err := ParseArticle(samplePage(), "https://coffee.example/guide")
	require.NoError(t, err)
	assert.Contains(t, article.PlainTextContent, "Espresso extraction")
	assert.Equal(t, "https://coffee.example/img/cover.jpg", article.TopImage)
}

func TestParseArticleEmptyPage(t *testing.T) {
	_, err := ParseArticle("<html><body></body></html>", "https://coffee.example")
	assert.Error(t, err)
}

func TestTopImageFromMeta(t *testing.T) {
	page := `<html><head><meta name="twitter:image" content="https://cdn.example/x.png"></head><body></body></html>`
	assert.Equal(t, "https://cdn.example/x.png", TopImage(page, "https://coffee.example"))
}

func TestFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(samplePage()))
	}))
	defer srv.Close()

	body, err := FetchHTML(context.Background(), srv.Client(), srv.URL+"/guide")
	require.NoError(t, err)
	assert.Contains(t, body, "Brewing guide")

	_, err = FetchHTML(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}
