package listeners

import (
	"context"
	"fmt"
	"time"

	"SOS911/internal/models"
	"SOS911/pkg/cache"
	"SOS911/pkg/logger"
	"SOS911/pkg/notification"
	"SOS911/pkg/util"

	"go.uber.org/zap"
)

// InitAlertListeners 注册报警信号的副作用处理
// 角标计数与联系人通知都是尽力而为，失败只记日志不回传
func InitAlertListeners(c cache.Cache, push *notification.ContactPush, sms *notification.ContactSMS, contactPhones []string) {
	// 个人房间收到新报警时累加未读角标
	util.Sig().Connect(models.SigAlertReceived, func(sender any, params ...any) {
		alert, ok := sender.(*models.Alert)
		if !ok || len(params) == 0 {
			return
		}
		userID, _ := params[0].(string)
		if userID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := c.Increment(ctx, "badge:"+userID, 1); err != nil {
			logger.Warn("累加未读角标失败", zap.String("user_id", userID), zap.Error(err))
		}
		logger.Debug("收到新报警", zap.String("alert_id", alert.ID), zap.String("user_id", userID))
	})

	// 本机提交成功后通知紧急联系人
	util.Sig().Connect(models.SigAlertSubmitted, func(sender any, params ...any) {
		if len(params) == 0 {
			return
		}
		submitted, ok := params[0].(*models.SubmittedAlert)
		if !ok {
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			mapLink := fmt.Sprintf("https://maps.google.com/?q=%g,%g",
				submitted.Location.Latitude, submitted.Location.Longitude)

			if push != nil {
				title := fmt.Sprintf("Alerta %s", submitted.Type)
				content := fmt.Sprintf("Ref %s · %s", submitted.IncidentRef, mapLink)
				if err := push.PushToContacts(ctx, []string{submitted.SenderID}, title, content, map[string]interface{}{
					"alert_id": submitted.ID,
				}); err != nil {
					logger.Warn("联系人推送失败", zap.Error(err))
				}
			}
			if sms != nil {
				for _, phone := range contactPhones {
					if err := sms.SendAlertSMS(ctx, phone, string(submitted.Type), submitted.IncidentRef, mapLink); err != nil {
						logger.Warn("联系人短信失败", zap.String("phone", phone), zap.Error(err))
					}
				}
			}
		}()
	})
}
