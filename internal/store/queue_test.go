package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SOS911/internal/models"
)

func newTestStore(t *testing.T) *QueueStore {
	t.Helper()
	s, err := NewQueueStore("sqlite", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(localID string) models.PendingAlertRecord {
	return models.PendingAlertRecord{
		LocalID:          localID,
		UserID:           "u1",
		Type:             models.CategoryMedical,
		Priority:         models.PriorityHigh,
		Location:         models.Location{Latitude: -0.18, Longitude: -78.47},
		Details:          "Necesito ayuda",
		CreatedAtEpochMs: time.Now().UnixMilli(),
		EmittedOffline:   true,
	}
}

func TestEnqueueReadAllRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("offline_abc")
	require.NoError(t, s.Enqueue(ctx, rec))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 逐字段往返一致
	assert.Equal(t, rec, records[0])
}

func TestEnqueueAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_1")))
	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_2")))
	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_3")))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "offline_1", records[0].LocalID)
	assert.Equal(t, "offline_3", records[2].LocalID)
	assert.Equal(t, 3, s.Depth(ctx))
}

func TestClearEmptiesQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_1")))
	require.NoError(t, s.Clear(ctx))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadAllEmptyStore(t *testing.T) {
	s := newTestStore(t)
	records, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCorruptPayloadTreatedAsEmptyAndPreserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 直接写入损坏的JSON
	corrupt := kvEntry{Key: pendingKey, Value: "{not json", UpdatedAt: time.Now()}
	require.NoError(t, s.db.Save(&corrupt).Error)

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "损坏数据按空列表处理，不能崩溃")

	// 原始数据保留不动
	var entry kvEntry
	require.NoError(t, s.db.First(&entry, "key = ?", pendingKey).Error)
	assert.Equal(t, "{not json", entry.Value)
}

func TestHealthCheck(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.HealthCheck(context.Background()))
}

func TestClearBatchKeepsUnsyncedRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_1")))
	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_2")))
	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_3")))

	require.NoError(t, s.ClearBatch(ctx, []string{"offline_1", "offline_3"}))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "offline_2", records[0].LocalID)
	assert.Equal(t, 1, s.Depth(ctx))

	require.NoError(t, s.ClearBatch(ctx, []string{"offline_2"}))
	records, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClearBatchUnknownIDsIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, sampleRecord("offline_1")))
	require.NoError(t, s.ClearBatch(ctx, []string{"offline_other"}))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
