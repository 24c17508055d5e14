package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// findErr maps a single-document lookup failure onto the package errors.
func findErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	default:
		return fmt.Errorf("failed to find %s: %w", what, err)
	}
}

// writeErr maps an insert or replace failure onto the package errors.
func writeErr(action string, err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

// affected reports ErrNotFound when a write touched no document.
func affected(n int64) error {
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type groupRow struct {
	ID    string `bson:"_id"`
	Count int64  `bson:"count"`
}

// decodeCounts drains a $group cursor into a key to count map.
func decodeCounts(ctx context.Context, cursor *mongo.Cursor) (map[string]int64, error) {
	var rows []groupRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ID] += row.Count
	}
	return counts, nil
}
