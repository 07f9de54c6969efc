package livechannel

import "sync"

// Callback 订阅回调，状态变更和位置更新走同一个回调，
// 调用方按 payload 形状区分
type Callback func(msg Message)

// Subscription 订阅句柄
// 调用方持有并在不再需要时 Close，避免靠事件名手工 off 造成泄漏
type Subscription struct {
	id     string
	topic  string // 空串表示进程级 alert:new 订阅
	cb     Callback
	client *Client
	once   sync.Once
}

// Topic 订阅的房间名
func (s *Subscription) Topic() string { return s.topic }

// Close 注销订阅；该房间最后一个订阅关闭时发送 leave
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.client != nil {
			s.client.removeSubscription(s)
		}
	})
}
