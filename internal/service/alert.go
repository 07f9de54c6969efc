package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SOS911/internal/api"
	"SOS911/internal/models"
	"SOS911/pkg/connectivity"
	"SOS911/pkg/errors"
	"SOS911/pkg/feedback"
	"SOS911/pkg/logger"
	"SOS911/pkg/metrics"
	"SOS911/pkg/util"
)

// AlertAPI 报警服务端接口，按本服务所需收窄
type AlertAPI interface {
	CreateAlert(ctx context.Context, payload api.AlertaPayload) (*models.Alert, error)
	CancelAlert(ctx context.Context, alertID string) error
}

// PendingQueue 离线报警队列
type PendingQueue interface {
	Enqueue(ctx context.Context, rec models.PendingAlertRecord) error
	Depth(ctx context.Context) int
}

// AlertService 报警提交核心服务
// 所有依赖由组装方注入，不做任何全局查找
type AlertService struct {
	api      AlertAPI
	checker  connectivity.Checker
	queue    PendingQueue
	feedback *feedback.Controller
}

func NewAlertService(apiCli AlertAPI, checker connectivity.Checker, queue PendingQueue, fb *feedback.Controller) *AlertService {
	return &AlertService{api: apiCli, checker: checker, queue: queue, feedback: fb}
}

// Submit 提交一次报警
// 设备反馈先行，联网则直达服务端，断网或传输失败落入离线队列；
// 服务端 4xx 拒绝原样上抛，不入队。
func (s *AlertService) Submit(ctx context.Context, intent models.AlertIntent, userID string) (*models.SubmittedAlert, error) {
	if userID == "" {
		return nil, errors.WithCode(errors.CodeAuth, "未登录用户不能报警")
	}
	if !intent.Type.Valid() {
		return nil, errors.WithCodef(errors.CodeValidation, "未知报警类别: %s", intent.Type)
	}
	if intent.Location.Zero() {
		return nil, errors.WithCode(errors.CodeValidation, "报警缺少位置")
	}

	// 反馈是尽力而为的，驱动报错不阻断提交
	if s.feedback != nil {
		if err := s.feedback.Trigger(ctx, string(intent.Type)); err != nil {
			logger.Warn("设备反馈启动失败", zap.Error(err))
		}
	}

	rec := models.PendingAlertRecord{
		LocalID:          "offline_" + uuid.New().String(),
		UserID:           userID,
		Type:             intent.Type,
		Priority:         models.DefaultPriority(intent.Type),
		Location:         intent.Location,
		Details:          intent.Details,
		GroupID:          intent.GroupID,
		CreatedAtEpochMs: time.Now().UnixMilli(),
	}

	if !s.checker.IsConnected(ctx) {
		return s.submitOffline(ctx, rec)
	}

	alert, err := s.api.CreateAlert(ctx, api.NewAlertaPayload(rec))
	if err != nil {
		if errors.IsRejected(err) {
			// 服务端明确拒绝，入队重发只会再次被拒
			metrics.AlertsSubmitted.WithLabelValues("rejected").Inc()
			return nil, err
		}
		logger.Warn("在线提交失败，转入离线队列",
			zap.String("local_id", rec.LocalID), zap.Error(err))
		return s.submitOffline(ctx, rec)
	}

	metrics.AlertsSubmitted.WithLabelValues("online").Inc()
	submitted := &models.SubmittedAlert{
		ID:          alert.ID,
		Type:        alert.Type,
		Title:       alert.Title,
		Location:    alert.Location,
		Status:      alert.Status,
		Time:        alert.CreatedAt,
		SenderID:    userID,
		IncidentRef: util.IncidentRef(alert.ID),
	}
	util.Sig().Emit(models.SigAlertSubmitted, s, submitted)
	return submitted, nil
}

func (s *AlertService) submitOffline(ctx context.Context, rec models.PendingAlertRecord) (*models.SubmittedAlert, error) {
	rec.EmittedOffline = true
	// 落盘失败只记日志：用户必须立刻拿到已提交的结果，
	// 丢一条兜底记录比中断紧急流程的代价小
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		logger.Error("离线报警落盘失败", zap.String("local_id", rec.LocalID), zap.Error(err))
	}
	metrics.AlertsSubmitted.WithLabelValues("offline").Inc()
	logger.Info("报警已转离线提交",
		zap.String("local_id", rec.LocalID),
		zap.Int("depth", s.queue.Depth(ctx)))

	submitted := &models.SubmittedAlert{
		ID:          rec.LocalID,
		Type:        rec.Type,
		Location:    rec.Location,
		Status:      models.StatusCreated,
		Time:        time.UnixMilli(rec.CreatedAtEpochMs),
		SenderID:    rec.UserID,
		IsOffline:   true,
		IncidentRef: util.IncidentRef(rec.LocalID),
	}
	util.Sig().Emit(models.SigAlertSubmitted, s, submitted)
	return submitted, nil
}

// StopEmergency 结束本地紧急状态
// 先停设备反馈；本地ID（字母开头）从未到达服务端，跳过远端取消。
func (s *AlertService) StopEmergency(ctx context.Context, alertID string) error {
	if s.feedback != nil {
		if err := s.feedback.Stop(ctx); err != nil {
			logger.Warn("停止设备反馈失败", zap.Error(err))
		}
	}
	if alertID == "" || isLocalID(alertID) {
		return nil
	}
	if err := s.api.CancelAlert(ctx, alertID); err != nil {
		return errors.Wrap(err, "取消服务端报警失败")
	}
	return nil
}

// isLocalID 字母开头的ID是本地生成的，服务端ID是数字开头
func isLocalID(id string) bool {
	c := id[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
