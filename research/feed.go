package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"content-forge/collaborators"
	"content-forge/config"
	"content-forge/feeder"
	"content-forge/models"
	"content-forge/parser"
)

const maxSourceChars = 4000

// PageRenderer renders client-side pages; *renderer.Renderer satisfies it.
type PageRenderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// FeedResearcher answers synchronously: it searches a news feed for the brief,
// reads the linked pages and returns their text as research notes.
type FeedResearcher struct {
	feeds       *feeder.Fetcher
	client      *http.Client
	renderer    PageRenderer
	urlTemplate string
	maxSources  int
}

// NewFeedResearcher builds a researcher from config. renderer may be nil.
func NewFeedResearcher(cfg config.ResearchConfig, client *http.Client, renderer PageRenderer) *FeedResearcher {
	return &FeedResearcher{
		feeds:       feeder.NewFetcher(client),
		client:      client,
		renderer:    renderer,
		urlTemplate: cfg.FeedURLTemplate,
		maxSources:  cfg.MaxSources,
	}
}

func (f *FeedResearcher) Research(ctx context.Context, req collaborators.ResearchRequest) (*collaborators.ResearchResult, error) {
	feedURL := f.feedURL(req)
	items, err := f.feeds.Fetch(ctx, feedURL, f.maxSources*3)
	if err != nil {
		return nil, fmt.Errorf("fetch research feed: %w", err)
	}

	var notes strings.Builder
	var sources []models.Source
	for _, item := range items {
		if len(sources) >= f.maxSources {
			break
		}
		if item.Link == "" || excluded(item.Link, req.ExcludedDomains) {
			continue
		}
		text, err := f.readPage(ctx, item.Link)
		if err != nil {
			config.WarnWithFields("research source skipped", config.Fields{
				"run_id": req.RunID,
				"url":    item.Link,
				"error":  err.Error(),
			})
			text = stripTags(item.Description)
		}
		if text == "" {
			continue
		}
		sources = append(sources, models.Source{Title: item.Title, URL: item.Link, Snippet: snippet(text, 200)})
		fmt.Fprintf(&notes, "## Source %d: %s (%s)\n\n%s\n\n", len(sources), item.Title, item.Link, snippet(text, maxSourceChars))
	}
	if len(sources) == 0 {
		return nil, errors.New("research found no usable sources")
	}
	return &collaborators.ResearchResult{
		Data:    strings.TrimSpace(notes.String()),
		Sources: sources,
	}, nil
}

func (f *FeedResearcher) feedURL(req collaborators.ResearchRequest) string {
	query := strings.TrimSpace(req.Title + " " + strings.Join(req.Keywords, " "))
	return strings.ReplaceAll(f.urlTemplate, "{query}", url.QueryEscape(query))
}

func (f *FeedResearcher) readPage(ctx context.Context, link string) (string, error) {
	var (
		page string
		err  error
	)
	if f.renderer != nil {
		page, err = f.renderer.RenderHTML(ctx, link)
	} else {
		page, err = parser.FetchHTML(ctx, f.client, link)
	}
	if err != nil {
		return "", err
	}
	article, err := parser.ParseArticle(page, link)
	if err != nil {
		return "", err
	}
	return article.PlainTextContent, nil
}

// excluded reports whether link's host is one of domains or a subdomain of one.
func excluded(link string, domains []string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "www."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) || host == "www."+d {
			return true
		}
	}
	return false
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

// stripTags returns the text nodes of an HTML fragment such as a feed description.
func stripTags(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " ")
}
