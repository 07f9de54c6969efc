package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"SOS911/internal/models"
	"SOS911/pkg/errors"
	"SOS911/pkg/logger"
	"SOS911/pkg/metrics"
	"SOS911/pkg/util"

	"go.uber.org/zap"
)

// 整个待同步列表序列化后存在这一个键下
const pendingKey = "pending_alerts"

// kvEntry 本地键值表，离线队列之外也存会话等简单设置
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "local_kv" }

// QueueStore 持久化离线队列
// 写入走"读全量、追加、写回全量"，不做部分写；
// 并发访问由互斥锁串行化，保证读-改-写不交错
type QueueStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewQueueStore 打开本地库并建表
func NewQueueStore(driver, dsn string) (*QueueStore, error) {
	db, err := util.OpenDatabase(&gorm.Config{}, driver, dsn)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeStorage, err, "open local queue store failed")
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, errors.WrapCode(errors.CodeStorage, err, "migrate local queue store failed")
	}
	return &QueueStore{db: db}, nil
}

// Enqueue 追加一条待同步记录
// 存储故障返回错误，但调用方（提交链路）只记日志不中断——
// 紧急流程里崩溃比丢一条兜底记录更糟
func (s *QueueStore) Enqueue(ctx context.Context, rec models.PendingAlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readAllLocked(ctx)
	records = append(records, rec)
	if err := s.writeLocked(ctx, records); err != nil {
		return err
	}
	metrics.QueueDepth.Set(float64(len(records)))
	return nil
}

// ReadAll 返回全部待同步记录
// 存储为空或内容损坏时返回空列表；损坏的原始数据保留不动，只记日志
func (s *QueueStore) ReadAll(ctx context.Context) ([]models.PendingAlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAllLocked(ctx), nil
}

// Clear 清空队列
func (s *QueueStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Delete(&kvEntry{}, "key = ?", pendingKey).Error; err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "clear offline queue failed")
	}
	metrics.QueueDepth.Set(0)
	return nil
}

// ClearBatch 按本地ID移除已同步的记录
// 同步是"读快照、批量上传、确认后清除"，上传期间新入队的记录
// 不在快照里，必须原样保留到下一轮，所以不能整表清空
func (s *QueueStore) ClearBatch(ctx context.Context, localIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	synced := make(map[string]struct{}, len(localIDs))
	for _, id := range localIDs {
		synced[id] = struct{}{}
	}

	records := s.readAllLocked(ctx)
	kept := make([]models.PendingAlertRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := synced[rec.LocalID]; !ok {
			kept = append(kept, rec)
		}
	}

	if len(kept) == 0 {
		if err := s.db.WithContext(ctx).Delete(&kvEntry{}, "key = ?", pendingKey).Error; err != nil {
			return errors.WrapCode(errors.CodeStorage, err, "clear offline queue failed")
		}
	} else if err := s.writeLocked(ctx, kept); err != nil {
		return err
	}
	metrics.QueueDepth.Set(float64(len(kept)))
	return nil
}

// Depth 当前队列长度
func (s *QueueStore) Depth(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readAllLocked(ctx))
}

// HealthCheck 本地库可用性探测
func (s *QueueStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层数据库
func (s *QueueStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *QueueStore) readAllLocked(ctx context.Context) []models.PendingAlertRecord {
	var entry kvEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", pendingKey).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Warn("read offline queue failed", zap.Error(err))
		}
		return nil
	}
	if entry.Value == "" {
		return nil
	}

	var records []models.PendingAlertRecord
	if err := json.Unmarshal([]byte(entry.Value), &records); err != nil {
		// 损坏数据按空处理但不删除，留给人工排查
		logger.Error("offline queue payload corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return records
}

func (s *QueueStore) writeLocked(ctx context.Context, records []models.PendingAlertRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "marshal offline queue failed")
	}
	entry := kvEntry{Key: pendingKey, Value: string(data), UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "write offline queue failed")
	}
	return nil
}
