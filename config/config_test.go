package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), CONFIG_FILE)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := LoadFile(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Pipeline.MaxQualityRuns)
	assert.Equal(t, 1, cfg.Pipeline.CreditCost)
	assert.Equal(t, "landscape", cfg.Pipeline.ImageOrientation)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.CallTimeout)
	assert.Equal(t, "google", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, "feed", cfg.Research.Mode)
	assert.Equal(t, "contentforge", cfg.Mongo.DBName)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://example:27017")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, err := LoadFile(writeConfig(t, `
llm:
  provider: openai
  model_name: gpt-4o-mini
pipeline:
  max_quality_runs: 5
  call_timeout: 30s
  timeouts:
    research: 5m
`))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://example:27017", cfg.Mongo.URI)
	assert.Equal(t, "openai-key", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Pipeline.MaxQualityRuns)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.Timeout(cfg.Pipeline.Timeouts.Research))
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Timeout(cfg.Pipeline.Timeouts.Write))
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "negative quality runs", body: "pipeline:\n  max_quality_runs: -1\n"},
		{name: "unknown provider", body: "llm:\n  provider: mystery\n"},
		{name: "http research without base url", body: "research:\n  mode: http\n"},
		{name: "unknown research mode", body: "research:\n  mode: crawl\n"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, testCase.body))
			assert.Error(t, err)
		})
	}
}
