package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-forge/models"
)

func TestMergeKeepsSiblingLeaves(t *testing.T) {
	dst := models.Artifacts{
		"research": map[string]any{"correlationId": "abc", "completed": false},
	}
	out := Merge(dst, models.Artifacts{
		"research": map[string]any{"data": "notes", "completed": true},
	})

	assert.Equal(t, map[string]any{
		"correlationId": "abc",
		"data":          "notes",
		"completed":     true,
	}, out["research"])
	// input untouched
	assert.Equal(t, false, dst["research"].(map[string]any)["completed"])
}

func TestMergeReplacesSlices(t *testing.T) {
	dst := models.Artifacts{"research": map[string]any{"sources": []any{"a", "b"}}}
	out := Merge(dst, models.Artifacts{"research": map[string]any{"sources": []any{"c"}}})
	assert.Equal(t, []any{"c"}, out["research"].(map[string]any)["sources"])
}

func TestMergeOrderIndependentOnDisjointSubtrees(t *testing.T) {
	base := models.Artifacts{"write": map[string]any{"content": "draft"}}
	fragments := []models.Artifacts{
		{"research": map[string]any{"data": "notes"}},
		{"coverImage": map[string]any{"url": "https://img"}},
		{"qualityControl": map[string]any{"runCount": 1}},
		{"write": map[string]any{"metaDescription": "meta"}},
	}

	forward := base
	for _, f := range fragments {
		forward = Merge(forward, f)
	}
	backward := base
	for i := len(fragments) - 1; i >= 0; i-- {
		backward = Merge(backward, fragments[i])
	}
	union := models.Artifacts{}
	for _, f := range fragments {
		for k, v := range f {
			union[k] = v
		}
	}

	assert.Equal(t, forward, backward)
	assert.Equal(t, forward, Merge(base, union))
}

func TestFragmentAndDecode(t *testing.T) {
	in := models.ResearchArtifact{
		CorrelationID: "corr-1",
		Sources:       []models.Source{{Title: "A", URL: "https://a.example"}},
	}
	frag, err := Fragment(models.ArtifactResearch, in)
	require.NoError(t, err)

	var out models.ResearchArtifact
	ok, err := Decode(frag, models.ArtifactResearch, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	ok, err = Decode(frag, models.ArtifactWrite, &out)
	require.NoError(t, err)
	assert.False(t, ok)
}
