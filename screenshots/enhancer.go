package screenshots

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"content-forge/config"
	"content-forge/models"
)

// Capturer takes a PNG screenshot of a page; *renderer.Renderer satisfies it.
type Capturer interface {
	CaptureScreenshot(ctx context.Context, url string) ([]byte, error)
}

// Enhancer adds screenshots of cited sources under the paragraph citing them.
type Enhancer struct {
	capturer   Capturer
	dir        string
	publicBase string
	max        int
}

func NewEnhancer(capturer Capturer, cfg config.ScreenshotsConfig) *Enhancer {
	return &Enhancer{
		capturer:   capturer,
		dir:        cfg.Dir,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		max:        cfg.Max,
	}
}

// Enhance returns the content with screenshots inserted, or "" when nothing
// was added. Pages that fail to capture are skipped.
func (e *Enhancer) Enhance(ctx context.Context, runID, content string, sources []models.Source) (string, error) {
	added := 0
	for _, src := range sources {
		if added >= e.max {
			break
		}
		alt := "Screenshot of " + sourceLabel(src)
		if src.URL == "" || !strings.Contains(content, src.URL) || strings.Contains(content, "!["+alt+"]") {
			continue
		}

		png, err := e.capturer.CaptureScreenshot(ctx, src.URL)
		if err != nil {
			config.WarnWithFields("screenshot capture failed", config.Fields{
				"run_id": runID,
				"url":    src.URL,
				"error":  err.Error(),
			})
			continue
		}
		publicURL, err := e.store(runID, png)
		if err != nil {
			return "", err
		}
		content = insertAfterParagraph(content, src.URL, fmt.Sprintf("![%s](%s)", alt, publicURL))
		added++
	}
	if added == 0 {
		return "", nil
	}
	return content, nil
}

func (e *Enhancer) store(runID string, png []byte) (string, error) {
	dir := filepath.Join(e.dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), png, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return e.publicBase + "/" + path.Join(runID, name), nil
}

// insertAfterParagraph places block after the paragraph containing the first
// occurrence of needle.
func insertAfterParagraph(content, needle, block string) string {
	i := strings.Index(content, needle)
	if i < 0 {
		return content
	}
	end := strings.Index(content[i:], "\n\n")
	if end < 0 {
		return strings.TrimRight(content, "\n") + "\n\n" + block + "\n"
	}
	at := i + end
	return content[:at] + "\n\n" + block + content[at:]
}

func sourceLabel(s models.Source) string {
	if s.Title != "" {
		return s.Title
	}
	return s.URL
}
