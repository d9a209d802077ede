package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

func TestRunBulkKeepsOrderAndIsolatesFailures(t *testing.T) {
	var inFlight, peak int32
	ids := []string{"a", "b", "c", "d", "e", "f"}

	results := runBulk(context.Background(), 2, ids, func(ctx context.Context, id string) error {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		if id == "c" {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "approved is terminal")
		}
		return nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
	}
	assert.False(t, results[2].Success)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, results[2].Code)
	assert.Equal(t, "approved is terminal", results[2].Error)
	assert.True(t, results[5].Success)
}
