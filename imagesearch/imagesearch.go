package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/httpclient"
	"content-forge/models"
	"content-forge/parser"
)

// ErrNoImage is returned when no provider produced an image.
var ErrNoImage = errors.New("no image found")

// StockClient searches a stock photo API (Unsplash-compatible /search/photos).
type StockClient struct {
	client  *httpclient.BaseClient
	apiKey  string
	perPage int
}

func NewStockClient(client *httpclient.BaseClient, cfg config.ImageSearchConfig) *StockClient {
	return &StockClient{client: client, apiKey: cfg.APIKey, perPage: cfg.PerPage}
}

type stockSearchResponse struct {
	Results []struct {
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
	} `json:"results"`
}

func (s *StockClient) SearchImage(ctx context.Context, req collaborators.ImageSearchRequest) (models.Image, error) {
	query := url.Values{}
	query.Set("query", strings.TrimSpace(req.Title+" "+strings.Join(req.Keywords, " ")))
	query.Set("per_page", strconv.Itoa(s.perPage))
	if req.Orientation != "" {
		query.Set("orientation", req.Orientation)
	}
	httpReq, err := s.client.NewRequest(ctx, http.MethodGet, "/search/photos", query, nil)
	if err != nil {
		return models.Image{}, err
	}
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Client-ID "+s.apiKey)
	}

	var out stockSearchResponse
	if err := s.client.DoJSON(httpReq, &out); err != nil {
		return models.Image{}, fmt.Errorf("image search: %w", err)
	}
	for _, r := range out.Results {
		u := r.URLs.Regular
		if u == "" {
			u = r.URLs.Full
		}
		if u == "" {
			continue
		}
		alt := r.AltDescription
		if alt == "" {
			alt = r.Description
		}
		if alt == "" {
			alt = req.Title
		}
		return models.Image{URL: u, AltText: alt}, nil
	}
	return models.Image{}, ErrNoImage
}

// SourceImageFinder uses the top image of a research source page.
type SourceImageFinder struct {
	client *http.Client
}

func NewSourceImageFinder(client *http.Client) *SourceImageFinder {
	return &SourceImageFinder{client: client}
}

func (f *SourceImageFinder) SearchImage(ctx context.Context, req collaborators.ImageSearchRequest) (models.Image, error) {
	for _, src := range req.Sources {
		page, err := parser.FetchHTML(ctx, f.client, src.URL)
		if err != nil {
			continue
		}
		if img := parser.TopImage(page, src.URL); img != "" {
			return models.Image{URL: img, AltText: req.Title}, nil
		}
	}
	return models.Image{}, ErrNoImage
}

// Chain tries each searcher in order and returns the first image found.
type Chain []collaborators.ImageSearcher

func (c Chain) SearchImage(ctx context.Context, req collaborators.ImageSearchRequest) (models.Image, error) {
	var errs []error
	for _, s := range c {
		img, err := s.SearchImage(ctx, req)
		if err == nil && !img.Empty() {
			return img, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return models.Image{}, ErrNoImage
	}
	return models.Image{}, errors.Join(errs...)
}
