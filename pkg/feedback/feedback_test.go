package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	mu         sync.Mutex
	vibrations int
	tones      []string
	stops      int
	failAll    bool
}

func (d *recordingDriver) Vibrate(ctx context.Context, pattern []time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errors.New("no vibration motor")
	}
	d.vibrations++
	return nil
}

func (d *recordingDriver) SetBrightness(ctx context.Context, level float64) error {
	if d.failAll {
		return errors.New("no backlight control")
	}
	return nil
}

func (d *recordingDriver) PlayTone(ctx context.Context, tone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return errors.New("no speaker")
	}
	d.tones = append(d.tones, tone)
	return nil
}

func (d *recordingDriver) StopAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func TestTriggerRunsPattern(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv)

	require.NoError(t, c.Trigger(context.Background(), "SOS"))
	assert.True(t, c.Active())

	drv.mu.Lock()
	assert.Equal(t, 1, drv.vibrations)
	assert.Equal(t, []string{"siren"}, drv.tones)
	drv.mu.Unlock()

	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Active())
}

func TestTriggerSwallowsDriverErrors(t *testing.T) {
	drv := &recordingDriver{failAll: true}
	c := NewController(drv)

	// 驱动全部报错也不能让报警提交失败
	assert.NoError(t, c.Trigger(context.Background(), "FIRE"))
	assert.NoError(t, c.Stop(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv)

	// 没有活动反馈时 Stop 也安全
	require.NoError(t, c.Stop(context.Background()))

	require.NoError(t, c.Trigger(context.Background(), "MEDICAL"))
	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))

	drv.mu.Lock()
	assert.Equal(t, 1, drv.stops)
	drv.mu.Unlock()
}

func TestUnknownCategoryFallsBackToSOS(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv)

	require.NoError(t, c.Trigger(context.Background(), "UNKNOWN"))
	drv.mu.Lock()
	assert.Equal(t, []string{"siren"}, drv.tones)
	drv.mu.Unlock()
	_ = c.Stop(context.Background())
}
