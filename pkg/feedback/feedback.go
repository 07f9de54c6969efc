package feedback

import (
	"context"
	"sync"
	"time"

	"SOS911/pkg/logger"

	"go.uber.org/zap"
)

// Driver 设备能力接口（适配具体平台实现）
// 任何方法报错只记日志，绝不让设备反馈失败阻断报警提交
type Driver interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
	SetBrightness(ctx context.Context, level float64) error
	PlayTone(ctx context.Context, tone string) error
	StopAll(ctx context.Context) error
}

// Pattern 每种报警类别对应的设备反馈
type Pattern struct {
	Vibration []time.Duration
	Tone      string
	FlashFire bool    // FIRE：亮度闪烁引导逃生
	DimLevel  float64 // DANGER：压低亮度避免暴露，0表示不调整
}

// 各报警类别的反馈映射
var patterns = map[string]Pattern{
	"MEDICAL":       {Vibration: pulse(3, 400*time.Millisecond), Tone: "medical"},
	"DANGER":        {Vibration: pulse(2, 200*time.Millisecond), DimLevel: 0.05},
	"FIRE":          {Vibration: pulse(5, 300*time.Millisecond), Tone: "siren", FlashFire: true},
	"TRAFFIC":       {Vibration: pulse(2, 300*time.Millisecond), Tone: "horn"},
	"PREVENTIVE":    {Vibration: pulse(1, 200*time.Millisecond)},
	"SOS":           {Vibration: pulse(6, 500*time.Millisecond), Tone: "siren"},
	"EMERGENCY_911": {Vibration: pulse(6, 500*time.Millisecond), Tone: "siren"},
}

func pulse(n int, d time.Duration) []time.Duration {
	out := make([]time.Duration, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, d, d/2)
	}
	return out
}

// Controller 设备行为控制器
type Controller struct {
	driver Driver

	mu       sync.Mutex
	active   bool
	flashing chan struct{} // 非nil表示亮度闪烁协程在跑
}

// NewController 创建控制器，driver 为 nil 时退化为空驱动
func NewController(driver Driver) *Controller {
	if driver == nil {
		driver = NullDriver{}
	}
	return &Controller{driver: driver}
}

// Trigger 按报警类别启动设备反馈
// 所有驱动错误内部吞掉，只记日志
func (c *Controller) Trigger(ctx context.Context, category string) error {
	p, ok := patterns[category]
	if !ok {
		p = patterns["SOS"]
	}

	c.mu.Lock()
	c.active = true
	startFlash := p.FlashFire && c.flashing == nil
	if startFlash {
		c.flashing = make(chan struct{})
	}
	stop := c.flashing
	c.mu.Unlock()

	if len(p.Vibration) > 0 {
		if err := c.driver.Vibrate(ctx, p.Vibration); err != nil {
			logger.Warn("vibration failed", zap.String("category", category), zap.Error(err))
		}
	}
	if p.Tone != "" {
		if err := c.driver.PlayTone(ctx, p.Tone); err != nil {
			logger.Warn("tone playback failed", zap.String("category", category), zap.Error(err))
		}
	}
	if p.DimLevel > 0 {
		if err := c.driver.SetBrightness(ctx, p.DimLevel); err != nil {
			logger.Warn("brightness dim failed", zap.Error(err))
		}
	}
	if startFlash {
		go c.flashLoop(stop)
	}
	return nil
}

// flashLoop FIRE 场景下的亮度闪烁，直到 Stop
func (c *Controller) flashLoop(stop <-chan struct{}) {
	ctx := context.Background()
	high := true
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			level := 1.0
			if !high {
				level = 0.2
			}
			high = !high
			if err := c.driver.SetBrightness(ctx, level); err != nil {
				logger.Warn("brightness flash failed", zap.Error(err))
				return
			}
		}
	}
}

// Stop 停止所有设备反馈，幂等，无活动反馈时也安全
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.flashing != nil {
		close(c.flashing)
		c.flashing = nil
	}
	wasActive := c.active
	c.active = false
	c.mu.Unlock()

	if !wasActive {
		return nil
	}
	if err := c.driver.StopAll(ctx); err != nil {
		logger.Warn("feedback stop failed", zap.Error(err))
	}
	return nil
}

// Active 当前是否有活动反馈
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// NullDriver 无设备能力时的空实现
type NullDriver struct{}

func (NullDriver) Vibrate(ctx context.Context, pattern []time.Duration) error { return nil }
func (NullDriver) SetBrightness(ctx context.Context, level float64) error     { return nil }
func (NullDriver) PlayTone(ctx context.Context, tone string) error            { return nil }
func (NullDriver) StopAll(ctx context.Context) error                          { return nil }
