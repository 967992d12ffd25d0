package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := OpenHistory(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	store := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{Operation: OpExtract, Filename: "a.docx", Status: 200, BytesIn: 10, CreatedAt: base}))
	require.NoError(t, store.Record(ctx, Entry{Operation: OpConvertXML, Filename: "b.docx", Status: 400, Detail: "Invalid DOCX file format", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.Record(ctx, Entry{RequestID: "req-3", Operation: OpExtract, Filename: "c.docx", Status: 200, DurationMs: 7, CreatedAt: base.Add(2 * time.Second)}))

	all, err := store.Recent(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c.docx", "b.docx", "a.docx"}, []string{all[0].Filename, all[1].Filename, all[2].Filename})
	assert.Equal(t, "req-3", all[0].RequestID)
	assert.Equal(t, int64(7), all[0].DurationMs)
	assert.NotEmpty(t, all[0].ID)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Second)), "got %s", all[0].CreatedAt)
	assert.Equal(t, "Invalid DOCX file format", all[1].Detail)

	extracts, err := store.Recent(ctx, 10, OpExtract)
	require.NoError(t, err)
	require.Len(t, extracts, 2)
	assert.Equal(t, "c.docx", extracts[0].Filename)

	one, err := store.Recent(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, one, 1)

	none, err := store.Recent(ctx, 10, OpRender)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestHistoryStore_RecordRequiresOperation(t *testing.T) {
	store := openTestHistory(t)
	assert.Error(t, store.Record(context.Background(), Entry{Filename: "x.docx"}))
}

func TestHistoryStore_ConcurrentRecords(t *testing.T) {
	store := openTestHistory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Record(ctx, Entry{Operation: OpRender, Status: 200}))
		}()
	}
	wg.Wait()

	entries, err := store.Recent(ctx, 100, OpRender)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, ClampLimit(0))
	assert.Equal(t, DefaultHistoryLimit, ClampLimit(-3))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, MaxHistoryLimit, ClampLimit(10_000))
}
