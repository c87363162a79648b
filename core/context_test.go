package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	ctx := withRunKey(context.Background(), "run-123")
	ctx = withAnalysisID(ctx, 12345)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			analysisID, ok := getAnalysisID(ctx)
			assert.True(t, ok, "Goroutine %d: getAnalysisID should return true", i)
			assert.Equal(t, int64(12345), analysisID, "Goroutine %d: analysisID should be 12345", i)
			assert.Equal(t, "run-123", runKeyFromContext(ctx))
		})
	}
	wg.Wait()
}

// TestContextDefaults tests the zero values of an empty context.
func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	_, ok := getAnalysisID(ctx)
	assert.False(t, ok)
	assert.Empty(t, runKeyFromContext(ctx))
	assert.NotContains(t, runLogger(ctx).Data, "run")
	assert.Equal(t, "abc", runLogger(withRunKey(ctx, "abc")).Data["run"])
}
