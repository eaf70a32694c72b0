package imagesearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/httpclient"
	"content-forge/models"
)

func TestStockClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
		assert.Equal(t, "coffee brew", r.URL.Query().Get("query"))
		assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":[{"urls":{}},{"alt_description":"a cup","urls":{"regular":"https://img/1.jpg"}}]}`))
	}))
	defer srv.Close()

	c := NewStockClient(httpclient.NewBaseClientWithClient(srv.Client(), srv.URL), config.ImageSearchConfig{APIKey: "key", PerPage: 3})
	img, err := c.SearchImage(context.Background(), collaborators.ImageSearchRequest{
		Title: "coffee", Keywords: []string{"brew"}, Orientation: "landscape",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Image{URL: "https://img/1.jpg", AltText: "a cup"}, img)
}

func TestStockClientNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewStockClient(httpclient.NewBaseClientWithClient(srv.Client(), srv.URL), config.ImageSearchConfig{})
	_, err := c.SearchImage(context.Background(), collaborators.ImageSearchRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestSourceImageFinder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="/cover.png"></head><body></body></html>`))
	}))
	defer srv.Close()

	img, err := NewSourceImageFinder(srv.Client()).SearchImage(context.Background(), collaborators.ImageSearchRequest{
		Title:   "coffee",
		Sources: []models.Source{{URL: srv.URL + "/post"}},
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/cover.png", img.URL)
}

type stubSearcher struct {
	img models.Image
	err error
}

func (s stubSearcher) SearchImage(context.Context, collaborators.ImageSearchRequest) (models.Image, error) {
	return s.img, s.err
}

func TestChain(t *testing.T) {
	want := models.Image{URL: "https://img/2.jpg"}
	img, err := Chain{stubSearcher{err: errors.New("down")}, stubSearcher{}, stubSearcher{img: want}}.
		SearchImage(context.Background(), collaborators.ImageSearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, want, img)

	_, err = Chain{stubSearcher{err: errors.New("down")}}.SearchImage(context.Background(), collaborators.ImageSearchRequest{})
	assert.ErrorContains(t, err, "down")

	_, err = Chain{}.SearchImage(context.Background(), collaborators.ImageSearchRequest{})
	assert.ErrorIs(t, err, ErrNoImage)
}
