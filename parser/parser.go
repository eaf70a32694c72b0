package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/advancedlogic/GoOse/pkg/goose"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// readability 결과가 이보다 짧으면 trafilatura 로 다시 추출한다.
const minReadableChars = 400

const maxPageBytes = 5 << 20

// ParsedArticle 은 웹 페이지에서 추출한 본문과 대표 이미지이다.
type ParsedArticle struct {
	Title            string
	PlainTextContent string
	TopImage         string
}

// FetchHTML 은 서버 렌더링 페이지의 HTML 을 가져온다.
func FetchHTML(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// ParseArticle 은 readability 로 본문을 추출하고, 본문이 너무 짧으면 trafilatura 결과를 사용한다.
// 대표 이미지는 readability → 메타 태그 → GoOse 순서로 찾는다.
func ParseArticle(htmlStr, pageURL string) (*ParsedArticle, error) {
	baseURL, _ := url.Parse(pageURL)

	article := &ParsedArticle{}
	if r, err := parseWithReadability(htmlStr, baseURL); err == nil {
		article = r
	}
	if len(strings.TrimSpace(article.PlainTextContent)) < minReadableChars {
		if t, err := parseWithTrafilatura(htmlStr, baseURL); err == nil && len(t.PlainTextContent) > len(article.PlainTextContent) {
			article.PlainTextContent = t.PlainTextContent
			if article.Title == "" {
				article.Title = t.Title
			}
			if article.TopImage == "" {
				article.TopImage = t.TopImage
			}
		}
	}
	if article.TopImage == "" {
		article.TopImage = TopImage(htmlStr, pageURL)
	}
	article.PlainTextContent = strings.TrimSpace(article.PlainTextContent)
	if article.PlainTextContent == "" {
		return nil, errors.New("no readable text in page")
	}
	return article, nil
}

func parseWithReadability(htmlStr string, baseURL *url.URL) (*ParsedArticle, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}
	article, err := readability.FromDocument(doc, baseURL)
	if err != nil {
		return nil, err
	}
	return &ParsedArticle{
		Title:            article.Title,
		PlainTextContent: article.TextContent,
		TopImage:         article.Image,
	}, nil
}

func parseWithTrafilatura(htmlStr string, baseURL *url.URL) (*ParsedArticle, error) {
	article, err := trafilatura.Extract(strings.NewReader(htmlStr), trafilatura.Options{
		IncludeImages: true,
		OriginalURL:   baseURL,
	})
	if err != nil {
		return nil, err
	}
	return &ParsedArticle{
		Title:            article.Metadata.Title,
		PlainTextContent: article.ContentText,
		TopImage:         article.Metadata.Image,
	}, nil
}

// TopImage 는 페이지의 대표 이미지를 절대 URL 로 돌려준다. 찾지 못하면 "".
func TopImage(htmlStr, pageURL string) string {
	baseURL, _ := url.Parse(pageURL)
	if doc, err := html.Parse(strings.NewReader(htmlStr)); err == nil {
		if img := findTopImageFromMeta(doc); img != "" {
			return resolveURL(img, baseURL)
		}
	}
	g := goose.New()
	article, err := g.ExtractFromRawHTML(htmlStr, pageURL)
	if err != nil || article == nil {
		return ""
	}
	return resolveURL(article.TopImage, baseURL)
}

func findTopImageFromMeta(doc *html.Node) string {
	// 우선순위: Open Graph → Twitter 카드 → itemprop
	if u := findMetaContent(doc, "property", []string{"og:image", "og:image:url", "og:image:secure_url"}); u != "" {
		return u
	}
	if u := findMetaContent(doc, "name", []string{"twitter:image", "twitter:image:src", "thumbnail"}); u != "" {
		return u
	}
	return findMetaContent(doc, "itemprop", []string{"image"})
}

func findMetaContent(root *html.Node, key string, candidates []string) string {
	candidateSet := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		candidateSet[strings.ToLower(c)] = struct{}{}
	}

	var result string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || result != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var attrValue, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case strings.ToLower(key):
					attrValue = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if _, ok := candidateSet[attrValue]; ok && content != "" {
				result = content
				return
			}
		}
		for c := n.FirstChild; c != nil && result == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return result
}

func resolveURL(ref string, baseURL *url.URL) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() || baseURL == nil {
		return u.String()
	}
	return baseURL.ResolveReference(u).String()
}
