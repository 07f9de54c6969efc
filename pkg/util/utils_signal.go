package util

import "sync"

// SignalHandler 信号回调，sender 为事件主体
type SignalHandler func(sender any, params ...any)

// SignalHub 进程内的轻量事件分发器
// listeners 包用它把报警事件与通知逻辑解耦
type SignalHub struct {
	mu       sync.RWMutex
	handlers map[string][]SignalHandler
}

var (
	sigOnce sync.Once
	sigHub  *SignalHub
)

// Sig 返回全局信号分发器
func Sig() *SignalHub {
	sigOnce.Do(func() {
		sigHub = &SignalHub{handlers: make(map[string][]SignalHandler)}
	})
	return sigHub
}

// Connect 注册信号处理器
func (h *SignalHub) Connect(name string, fn SignalHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[name] = append(h.handlers[name], fn)
}

// Emit 同步触发信号，处理器按注册顺序执行
func (h *SignalHub) Emit(name string, sender any, params ...any) {
	h.mu.RLock()
	hs := append([]SignalHandler(nil), h.handlers[name]...)
	h.mu.RUnlock()
	for _, fn := range hs {
		fn(sender, params...)
	}
}
