package connectivity

import (
	"context"
	"net"
	"net/url"
	"time"

	"SOS911/pkg/logger"

	"go.uber.org/zap"
)

// Checker 网络可达性探测
// 探测本身出错时按"不可达"处理，宁可走离线路径也不丢报警
type Checker interface {
	IsConnected(ctx context.Context) bool
}

// ProbeChecker 对后端地址做 TCP 探测的实现
type ProbeChecker struct {
	addr    string // host:port
	timeout time.Duration
}

// NewProbeChecker 从后端 base URL 构造探测器
func NewProbeChecker(baseURL string, timeout time.Duration) (*ProbeChecker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" || u.Scheme == "wss" {
			port = "443"
		} else {
			port = "80"
		}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProbeChecker{addr: net.JoinHostPort(host, port), timeout: timeout}, nil
}

// IsConnected 探测后端是否可达
func (p *ProbeChecker) IsConnected(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		logger.Debug("connectivity probe failed", zap.String("addr", p.addr), zap.Error(err))
		return false
	}
	_ = conn.Close()
	return true
}

// Static 固定返回值的探测器，组合根和测试使用
type Static bool

func (s Static) IsConnected(ctx context.Context) bool { return bool(s) }
