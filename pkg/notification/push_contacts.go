package notification

import "context"

type PushConfig struct {
	AppKey       string
	MasterSecret string
}

type PushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error
}

// ContactPush 向紧急联系人的设备推送报警通知
type ContactPush struct {
	cfg PushConfig
	cli PushClient
}

func NewContactPush(cfg PushConfig, cli PushClient) *ContactPush { return &ContactPush{cfg: cfg, cli: cli} }

// PushToContacts 按联系人别名推送
func (p *ContactPush) PushToContacts(ctx context.Context, alias []string, title, content string, extras map[string]interface{}) error {
	if p.cli == nil {
		return context.Canceled // 表示未配置客户端
	}
	aud := map[string]interface{}{"alias": alias}
	return p.cli.Push(ctx, title, content, aud, extras)
}
