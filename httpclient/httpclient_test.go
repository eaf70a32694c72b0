package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-forge/trace"
)

func TestDoJSONPropagatesTraceHeaders(t *testing.T) {
	var gotRequestID, gotRunID, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = r.Header.Get("X-Request-Id")
		gotRunID = r.Header.Get("X-Run-Id")
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := NewBaseClientWithClient(nil, srv.URL)
	ctx := trace.WithRunID(trace.WithRequestAndSpan(context.Background(), "req-9", 0), "run-9")
	req, err := c.NewRequest(ctx, http.MethodGet, "/v1/search", url.Values{"q": {"go"}}, nil)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.DoJSON(req, &out))
	assert.Equal(t, "yes", out["ok"])
	assert.Equal(t, "req-9", gotRequestID)
	assert.Equal(t, "run-9", gotRunID)
	assert.Equal(t, "q=go", gotQuery)
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewBaseClientWithClient(nil, srv.URL)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/", nil, nil)
	require.NoError(t, err)

	err = c.DoJSON(req, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestNewRequestRejectsQueryInPath(t *testing.T) {
	c := NewBaseClientWithClient(nil, "http://example.com")
	_, err := c.NewRequest(context.Background(), http.MethodGet, "/a?b=c", nil, nil)
	assert.Error(t, err)
}
