package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/models"
)

func TestNormalizeArtifacts_ConvertsBSONContainers(t *testing.T) {
	raw := models.Artifacts{
		"qualityControl": primitive.D{
			{Key: "runCount", Value: int32(2)},
			{Key: "history", Value: primitive.A{
				primitive.D{{Key: "label", Value: "initial"}},
			}},
		},
		"research": primitive.M{"correlationId": "corr-1", "completed": false},
	}

	got := NormalizeArtifacts(raw)

	qc, ok := got["qualityControl"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int32(2), qc["runCount"])
	history, ok := qc["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, map[string]any{"label": "initial"}, history[0])

	research, ok := got["research"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "corr-1", research["correlationId"])
}

func TestNormalizeArtifacts_NilStaysNil(t *testing.T) {
	assert.Nil(t, NormalizeArtifacts(nil))
}

func TestNormalizeArtifacts_MergeableAfterNormalize(t *testing.T) {
	stored := NormalizeArtifacts(models.Artifacts{
		"qualityControl": primitive.D{{Key: "runCount", Value: int32(1)}},
		"image":          primitive.M{"url": "https://img.example/a.png"},
	})

	merged := artifacts.Merge(stored, models.Artifacts{
		"qualityControl": map[string]any{"runCount": 2},
	})

	var qc models.QualityControlArtifact
	ok, err := artifacts.Decode(merged, models.ArtifactQualityControl, &qc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, qc.RunCount)
	assert.Equal(t, map[string]any{"url": "https://img.example/a.png"}, merged["image"])
}
