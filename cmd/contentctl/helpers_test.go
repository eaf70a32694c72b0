package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/models"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"go", "kafka"}, splitList(" go, ,kafka ,"))
}

func TestParseID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := parseID("run", " "+id.Hex()+" ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseID("run", "nope")
	assert.ErrorContains(t, err, "--run")
}

func TestLoadResearchFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"data":"findings","sources":[{"url":"https://example.com","title":"Example"}]}`), 0o644))
	data, err := loadResearchFile(good)
	require.NoError(t, err)
	assert.Equal(t, "findings", data.Data)
	require.Len(t, data.Sources, 1)
	assert.Equal(t, "https://example.com", data.Sources[0].URL)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"data":"  "}`), 0o644))
	_, err = loadResearchFile(empty)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o644))
	_, err = loadResearchFile(broken)
	assert.Error(t, err)

	_, err = loadResearchFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWriteRunStatus(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := &models.GenerationRun{
		ID:            primitive.NewObjectID(),
		ContentItemID: primitive.NewObjectID(),
		Status:        models.RunResearch,
		Progress:      10,
		StartedAt:     started,
		Artifacts: models.Artifacts{
			models.ArtifactQualityControl: map[string]any{"runCount": 2},
			models.ArtifactResearch:       map[string]any{"correlationId": "corr-1", "completed": false},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRunStatus(&buf, run))
	out := buf.String()
	assert.Contains(t, out, run.ID.Hex())
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "10%")
	assert.Contains(t, out, "corr-1")
	assert.Regexp(t, `quality runs:\s+2`, out)
	assert.Contains(t, out, "2026-03-01T09:00:00Z")
	assert.NotContains(t, out, "completed:")
	assert.NotContains(t, out, "error:")
}
