package renderer

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"content-forge/config"
)

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

const (
	defaultChromePath = "/usr/bin/chromium-browser" // Docker/Linux 기본
	renderTimeout     = 30 * time.Second
	screenshotQuality = 90
)

// Renderer 는 헤드리스 브라우저로 클라이언트 렌더링 페이지를 다룬다.
// 호출마다 브라우저를 새로 띄우므로 동시 호출 간에 상태를 공유하지 않는다.
type Renderer struct {
	chromePath string
}

func New(cfg config.BrowserConfig) *Renderer {
	path := cfg.ChromePath
	if path == "" {
		path = defaultChromePath
	}
	return &Renderer{chromePath: path}
}

// RenderHTML 은 JS 렌더링이 끝난 페이지의 HTML 을 돌려준다.
func (r *Renderer) RenderHTML(ctx context.Context, url string) (string, error) {
	var htmlContent string
	err := r.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1*time.Second),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", err
	}
	return htmlContent, nil
}

// CaptureScreenshot 은 페이지 전체를 PNG 로 캡처한다.
func (r *Renderer) CaptureScreenshot(ctx context.Context, url string) ([]byte, error) {
	var buf []byte
	err := r.run(ctx,
		chromedp.EmulateViewport(1280, 800),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1*time.Second),
		chromedp.FullScreenshot(&buf, screenshotQuality),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Renderer) run(ctx context.Context, actions ...chromedp.Action) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.chromePath),
		chromedp.UserAgent(USER_AGENT),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, renderTimeout)
	defer cancel()

	return chromedp.Run(browserCtx, actions...)
}
