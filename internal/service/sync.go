package service

import (
	"context"

	"go.uber.org/zap"

	"SOS911/internal/models"
	"SOS911/pkg/connectivity"
	"SOS911/pkg/errors"
	"SOS911/pkg/logger"
	"SOS911/pkg/metrics"
)

// SyncAPI 批量同步接口
type SyncAPI interface {
	SyncOffline(ctx context.Context, records []models.PendingAlertRecord) (bool, error)
}

// SyncQueue 同步侧所需的队列操作
type SyncQueue interface {
	ReadAll(ctx context.Context) ([]models.PendingAlertRecord, error)
	ClearBatch(ctx context.Context, localIDs []string) error
	Depth(ctx context.Context) int
}

// SyncService 离线队列批量同步
// 整批提交整批确认：服务端确认成功才清队列，否则整批保留等下轮。
// 确认丢失时会重发整批，服务端按 id_local 幂等处理。
type SyncService struct {
	api     SyncAPI
	checker connectivity.Checker
	queue   SyncQueue
}

func NewSyncService(apiCli SyncAPI, checker connectivity.Checker, queue SyncQueue) *SyncService {
	return &SyncService{api: apiCli, checker: checker, queue: queue}
}

// SyncPending 执行一轮同步，空队列或断网时直接返回
func (s *SyncService) SyncPending(ctx context.Context) error {
	if !s.checker.IsConnected(ctx) {
		metrics.SyncRuns.WithLabelValues("skipped").Inc()
		return nil
	}

	records, err := s.queue.ReadAll(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		return errors.WrapCode(errors.CodeSync, err, "读取离线队列失败")
	}
	if len(records) == 0 {
		return nil
	}

	ok, err := s.api.SyncOffline(ctx, records)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		logger.Warn("离线队列同步失败，整批保留",
			zap.Int("count", len(records)), zap.Error(err))
		return errors.WrapCode(errors.CodeSync, err, "批量同步请求失败")
	}
	if !ok {
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		logger.Warn("服务端未确认同步，整批保留", zap.Int("count", len(records)))
		return errors.WithCode(errors.CodeSync, "服务端未确认离线同步")
	}

	// 只清本轮上传的快照，上传期间新入队的记录留给下一轮
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.LocalID)
	}
	if err := s.queue.ClearBatch(ctx, ids); err != nil {
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		return errors.WrapCode(errors.CodeStorage, err, "清除已同步记录失败")
	}
	metrics.SyncRuns.WithLabelValues("success").Inc()
	logger.Info("离线队列同步完成", zap.Int("count", len(records)))
	return nil
}
