package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateWrite() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{
		{Code: 11000, Message: "E11000 duplicate key error collection: admin_tarea.users index: email_1"},
	}}
}

func TestFindErr(t *testing.T) {
	timeout := errors.New("server selection timeout")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "found", err: nil, want: nil},
		{name: "no documents", err: mongo.ErrNoDocuments, want: ErrNotFound},
		{name: "driver failure", err: timeout, want: timeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findErr("user", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.EqualError(t, findErr("task", timeout), "failed to find task: server selection timeout")
	assert.NotErrorIs(t, findErr("task", timeout), ErrNotFound)
}

func TestWriteErr(t *testing.T) {
	refused := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "ok", err: nil, want: nil},
		{name: "duplicate write", err: duplicateWrite(), want: ErrDuplicate},
		{name: "duplicate command", err: mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, want: ErrDuplicate},
		{name: "duplicate on update", err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11001}}}, want: ErrDuplicate},
		{name: "other write error", err: mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121, Message: "Document failed validation"}}}, want: nil},
		{name: "network", err: refused, want: refused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeErr("insert user", tt.err)
			switch {
			case tt.err == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				require.Error(t, got)
				assert.NotErrorIs(t, got, ErrDuplicate)
				assert.Contains(t, got.Error(), "failed to insert user")
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestAffected(t *testing.T) {
	assert.ErrorIs(t, affected(0), ErrNotFound)
	assert.NoError(t, affected(1))
}

func TestDecodeCounts(t *testing.T) {
	// $sum over literal 1 yields int32 counts.
	cursor, err := mongo.NewCursorFromDocuments([]interface{}{
		bson.D{{Key: "_id", Value: "Pending"}, {Key: "count", Value: int32(3)}},
		bson.D{{Key: "_id", Value: "Completed"}, {Key: "count", Value: int64(2)}},
	}, nil, nil)
	require.NoError(t, err)

	counts, err := decodeCounts(context.Background(), cursor)

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Pending": 3, "Completed": 2}, counts)
}

func TestDecodeCountsEmpty(t *testing.T) {
	cursor, err := mongo.NewCursorFromDocuments([]interface{}{}, nil, nil)
	require.NoError(t, err)

	counts, err := decodeCounts(context.Background(), cursor)

	require.NoError(t, err)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
}

func TestDecodeCountsRejectsMalformedRow(t *testing.T) {
	cursor, err := mongo.NewCursorFromDocuments([]interface{}{
		bson.D{{Key: "_id", Value: "Pending"}, {Key: "count", Value: "three"}},
	}, nil, nil)
	require.NoError(t, err)

	_, err = decodeCounts(context.Background(), cursor)

	assert.Error(t, err)
}

func TestBreakerIgnoresDuplicates(t *testing.T) {
	cb := NewBreaker("test-duplicates")
	for i := 0; i < 10; i++ {
		err := guard(cb, func() error { return writeErr("insert user", duplicateWrite()) })
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, "closed", cb.State().String())
}
