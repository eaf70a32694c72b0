package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanSequence(t *testing.T) {
	ctx := WithRequestAndSpan(context.Background(), "req-1", 0)
	assert.Equal(t, "0", CurrentSpanID(ctx))

	id, span := NextSpanID(ctx)
	assert.Equal(t, "req-1", id)
	assert.Equal(t, "1", span)
	_, span = NextSpanID(ctx)
	assert.Equal(t, "2", span)
	assert.Equal(t, "2", CurrentSpanID(ctx))
}

func TestNextSpanIDWithoutTrace(t *testing.T) {
	id, span := NextSpanID(context.Background())
	assert.Len(t, id, 32)
	assert.Equal(t, "1", span)
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(context.Background()))
	assert.Equal(t, "run-1", RunIDFromContext(WithRunID(context.Background(), "run-1")))
}
