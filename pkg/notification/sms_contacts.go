package notification

import (
	"context"
	"fmt"
)

type ContactSMSConfig struct {
	SignName     string
	TemplateCode string
}

// ContactSMSClient 便于替换/注入的发送接口（适配真实 SDK）
type ContactSMSClient interface {
	Send(ctx context.Context, phone, sign, template string, params map[string]string) error
}

// ContactSMS 向紧急联系人发送报警短信
type ContactSMS struct {
	cfg ContactSMSConfig
	cli ContactSMSClient
}

func NewContactSMS(cfg ContactSMSConfig, cli ContactSMSClient) *ContactSMS {
	return &ContactSMS{cfg: cfg, cli: cli}
}

// SendAlertSMS 通知单个联系人：报警类别、事件编号和定位链接
func (s *ContactSMS) SendAlertSMS(ctx context.Context, phone, category, incidentRef, mapLink string) error {
	if s.cli == nil {
		return fmt.Errorf("ContactSMSClient not configured")
	}
	params := map[string]string{
		"category": category,
		"ref":      incidentRef,
		"map":      mapLink,
	}
	return s.cli.Send(ctx, phone, s.cfg.SignName, s.cfg.TemplateCode, params)
}
