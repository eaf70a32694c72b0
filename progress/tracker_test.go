package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/models"
)

type fakeRuns struct {
	matched   bool
	err       error
	statuses  []models.RunStatus
	failedMsg string
}

func (f *fakeRuns) UpdateStatus(_ context.Context, _ primitive.ObjectID, status models.RunStatus, _ int, _ map[string]any) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.statuses = append(f.statuses, status)
	return f.matched, nil
}

func (f *fakeRuns) MarkFailed(_ context.Context, _ primitive.ObjectID, message, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.failedMsg = message
	return f.matched, nil
}

type fakeContents struct {
	err       error
	statuses  []models.ContentStatus
	failedMsg string
}

func (f *fakeContents) UpdateStatus(_ context.Context, _ primitive.ObjectID, status models.ContentStatus) error {
	if f.err != nil {
		return f.err
	}
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeContents) MarkFailed(_ context.Context, _ primitive.ObjectID, message string) error {
	if f.err != nil {
		return f.err
	}
	f.failedMsg = message
	return nil
}

func TestContentStatusFor(t *testing.T) {
	tests := []struct {
		status       models.RunStatus
		publishReady bool
		want         models.ContentStatus
	}{
		{models.RunScheduled, false, models.ContentScheduled},
		{models.RunResearch, false, models.ContentGenerating},
		{models.RunImage, false, models.ContentGenerating},
		{models.RunWriting, false, models.ContentGenerating},
		{models.RunQualityControl, false, models.ContentGenerating},
		{models.RunValidating, false, models.ContentGenerating},
		{models.RunUpdating, false, models.ContentGenerating},
		{models.RunFailed, false, models.ContentFailed},
		{models.RunCompleted, true, models.ContentReadyToPublish},
		{models.RunCompleted, false, models.ContentScheduled},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ContentStatusFor(tt.status, tt.publishReady))
		})
	}
}

func TestAdvanceMirrorsContentStatus(t *testing.T) {
	runs := &fakeRuns{matched: true}
	contents := &fakeContents{}
	tr := NewTracker(runs, contents)

	err := tr.Advance(context.Background(), Target{RunID: primitive.NewObjectID()}, models.RunWriting, 40, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.RunStatus{models.RunWriting}, runs.statuses)
	assert.Equal(t, []models.ContentStatus{models.ContentGenerating}, contents.statuses)
}

func TestAdvanceSkipsContentWhenNoRunMatched(t *testing.T) {
	contents := &fakeContents{}
	tr := NewTracker(&fakeRuns{matched: false}, contents)

	err := tr.Advance(context.Background(), Target{}, models.RunImage, 25, nil)
	require.NoError(t, err)
	assert.Empty(t, contents.statuses)
}

func TestAdvanceReturnsRunUpdateError(t *testing.T) {
	tr := NewTracker(&fakeRuns{err: errors.New("db down")}, &fakeContents{})
	err := tr.Advance(context.Background(), Target{}, models.RunImage, 25, nil)
	assert.ErrorContains(t, err, "db down")
}

func TestAdvanceToleratesContentUpdateError(t *testing.T) {
	tr := NewTracker(&fakeRuns{matched: true}, &fakeContents{err: errors.New("boom")})
	assert.NoError(t, tr.Advance(context.Background(), Target{}, models.RunImage, 25, nil))
}

func TestReportFailureRecordsBoth(t *testing.T) {
	runs := &fakeRuns{matched: true}
	contents := &fakeContents{}
	tr := NewTracker(runs, contents)

	tr.ReportFailure(context.Background(), Target{}, errors.New("writer exploded"))
	assert.Equal(t, "writer exploded", runs.failedMsg)
	assert.Equal(t, "writer exploded", contents.failedMsg)
}

func TestReportFailureSwallowsBookkeepingErrors(t *testing.T) {
	tr := NewTracker(&fakeRuns{err: errors.New("db down")}, &fakeContents{err: errors.New("db down")})
	assert.NotPanics(t, func() {
		tr.ReportFailure(context.Background(), Target{}, errors.New("writer exploded"))
	})
}
