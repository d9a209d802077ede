package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/foundation-api/internal/dto"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

const defaultBulkConcurrency = 4

// runBulk applies fn to every id with at most limit calls in flight. Items are
// independent: a failure is recorded in its result and never stops the rest.
// Results keep the order of ids.
func runBulk(ctx context.Context, limit int, ids []string, fn func(ctx context.Context, id string) error) []dto.BulkItemResult {
	if limit <= 0 {
		limit = defaultBulkConcurrency
	}
	results := make([]dto.BulkItemResult, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = bulkResult(id, fn(ctx, id))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func bulkResult(id string, err error) dto.BulkItemResult {
	if err == nil {
		return dto.BulkItemResult{ID: id, Success: true}
	}
	appErr := appErrors.FromError(err)
	return dto.BulkItemResult{ID: id, Success: false, Code: appErr.Code, Error: appErr.Message}
}
