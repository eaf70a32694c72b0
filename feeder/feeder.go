package feeder

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

type FeedItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// Fetcher 는 RSS/Atom 피드를 가져온다.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch 는 피드 항목을 가져온다. limit 이 0 보다 크면 앞에서부터 limit 개만 돌려준다.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, limit int) ([]FeedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []FeedItem
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		items = append(items, FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PublishedAt: published,
		})
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
