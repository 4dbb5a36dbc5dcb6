package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethpandaops/tally/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRecorder_RecordAndList(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)
	recorder := NewRedisRecorder(client, "tally:exports", 10)
	ctx := context.Background()

	first, err := recorder.Record(ctx, Entry{Kind: "tasks", UserID: "u1", Filename: "a.xlsx", TotalCount: 5, FilteredCount: 2})
	require.NoError(t, err)

	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.False(t, first.CreatedAt.IsZero())

	created := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	second, err := recorder.Record(ctx, Entry{ID: "fixed", Kind: "projects", Filename: "b.xlsx", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second.ID)
	assert.Equal(t, created, second.CreatedAt)

	assert.True(t, mr.Exists("tally:exports"))

	entries, err := recorder.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "fixed", entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, 5, entries[1].TotalCount)
	assert.Equal(t, 2, entries[1].FilteredCount)
	assert.Equal(t, "u1", entries[1].UserID)
}

func TestRedisRecorder_TrimsToMaxEntries(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)
	recorder := NewRedisRecorder(client, "exports", 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := recorder.Record(ctx, Entry{Filename: fmt.Sprintf("%d.xlsx", i)})
		require.NoError(t, err)
	}

	entries, err := recorder.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "4.xlsx", entries[0].Filename)
	assert.Equal(t, "2.xlsx", entries[2].Filename)
}

func TestRedisRecorder_ListLimit(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)
	recorder := NewRedisRecorder(client, "exports", 0)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := recorder.Record(ctx, Entry{Filename: fmt.Sprintf("%d.xlsx", i)})
		require.NoError(t, err)
	}

	tests := []struct {
		limit   int
		want    int
		wantErr bool
	}{
		{limit: 1, want: 1},
		{limit: 2, want: 2},
		{limit: 10, want: 4},
		{limit: 0, want: 4},
		{limit: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			entries, err := recorder.List(ctx, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLimit)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestRedisRecorder_EmptyList(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)

	entries, err := NewRedisRecorder(client, "exports", 10).List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisRecorder_CorruptEntry(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)
	_, err := mr.Lpush("exports", "{not json")
	require.NoError(t, err)

	_, err = NewRedisRecorder(client, "exports", 10).List(context.Background(), 0)
	assert.Error(t, err)
}

func TestRedisRecorder_ServerDown(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)
	mr.Close()

	_, err := NewRedisRecorder(client, "exports", 10).Record(context.Background(), Entry{})
	assert.Error(t, err)
}

func TestNopRecorder(t *testing.T) {
	recorder := NopRecorder{}

	entry, err := recorder.Record(context.Background(), Entry{Kind: "tasks"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	entries, err := recorder.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = recorder.List(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
