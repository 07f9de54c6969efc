package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsAndStops(t *testing.T) {
	var runs int64
	s := New()
	s.Every(10*time.Millisecond, FuncJob(func(ctx context.Context) {
		atomic.AddInt64(&runs, 1)
	}))

	time.Sleep(60 * time.Millisecond)
	s.Stop()
	got := atomic.LoadInt64(&runs)
	assert.GreaterOrEqual(t, got, int64(2))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, got, atomic.LoadInt64(&runs), "停止后不再执行")
}

func TestOnceAfter(t *testing.T) {
	done := make(chan struct{})
	s := New()
	defer s.Stop()
	s.OnceAfter(5*time.Millisecond, FuncJob(func(ctx context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("一次性任务未执行")
	}
}

func TestOnceAfterCancelled(t *testing.T) {
	var runs int64
	s := New()
	s.OnceAfter(50*time.Millisecond, FuncJob(func(ctx context.Context) {
		atomic.AddInt64(&runs, 1)
	}))
	s.Stop()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&runs))
}

func TestCronAddAndEntries(t *testing.T) {
	cr := NewCron(time.UTC)
	id, err := cr.Add("0 3 * * *", FuncJob(func(ctx context.Context) {}))
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, cr.Entries(), 1)

	_, err = cr.Add("not a cron expr", FuncJob(func(ctx context.Context) {}))
	assert.Error(t, err)

	cr.Start()
	cr.Stop()
}
