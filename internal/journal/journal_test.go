package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{
		ID: "a1", Kind: "swap", Side: "buy", Mint: "So111", Quantity: "1.5",
		Signature: "sig-1", State: "settled", CreatedAt: base,
	}))
	require.NoError(t, store.Record(ctx, Entry{
		ID: "a2", Kind: "swap", Side: "sell-all", Mint: "So111",
		State: "failed", Error: "等待确认超时", Signature: "sig-2",
		CreatedAt: base.Add(time.Minute),
	}))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 新记录在前
	assert.Equal(t, "a2", entries[0].ID)
	assert.Equal(t, "failed", entries[0].State)
	assert.Equal(t, "等待确认超时", entries[0].Error)
	assert.Equal(t, "a1", entries[1].ID)
	assert.Equal(t, "1.5", entries[1].Quantity)
}

func TestRecentHonorsLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{
			ID: string(rune('a'+i)), Kind: "swap", State: "settled",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestDuplicateIDRejected(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Entry{ID: "dup", Kind: "swap", State: "settled"}))
	assert.Error(t, store.Record(ctx, Entry{ID: "dup", Kind: "swap", State: "settled"}))
}
