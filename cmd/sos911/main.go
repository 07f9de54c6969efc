package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SOS911/internal/api"
	handlers "SOS911/internal/handler"
	"SOS911/internal/listeners"
	"SOS911/internal/models"
	"SOS911/internal/service"
	"SOS911/internal/store"
	"SOS911/pkg/cache"
	"SOS911/pkg/config"
	"SOS911/pkg/connectivity"
	"SOS911/pkg/feedback"
	"SOS911/pkg/livechannel"
	"SOS911/pkg/logger"
	"SOS911/pkg/scheduler"
	"SOS911/pkg/util"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Mode)

	// 存储与缓存
	queue, err := store.NewQueueStore(cfg.QueueDriver, cfg.QueueDSN)
	if err != nil {
		logger.Error("打开离线队列存储失败", zap.Error(err))
		os.Exit(1)
	}
	defer queue.Close()

	c, err := cache.NewCache(cache.Config{
		Type: cfg.CacheType,
		Redis: cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	})
	if err != nil {
		logger.Error("初始化缓存失败", zap.Error(err))
		os.Exit(1)
	}
	defer c.Close()

	// 出网组件
	apiCli := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout())
	checker, err := connectivity.NewProbeChecker(cfg.APIBaseURL, 3*time.Second)
	if err != nil {
		logger.Error("后端地址无效", zap.String("url", cfg.APIBaseURL), zap.Error(err))
		os.Exit(1)
	}

	// 核心服务
	fb := feedback.NewController(feedback.NullDriver{})
	alertSvc := service.NewAlertService(apiCli, checker, queue, fb)
	syncSvc := service.NewSyncService(apiCli, checker, queue)
	deduper := service.NewEventDeduper(c, 10*time.Minute)

	// 推送/短信客户端由平台侧实现并注入；没有客户端实现时
	// 传 nil，联系人通知退化为只维护角标计数
	listeners.InitAlertListeners(c, nil, nil, nil)

	// 离线队列周期性同步
	sched := scheduler.New()
	defer sched.Stop()
	sched.Every(cfg.SyncInterval(), scheduler.FuncJob(func(ctx context.Context) {
		if err := syncSvc.SyncPending(ctx); err != nil {
			logger.Warn("周期同步失败", zap.Error(err))
		}
	}))

	// 夜间兜底：短间隔同步连续失败时，至少每天凌晨再试一轮
	nightly := scheduler.NewCron(nil)
	if _, err := nightly.Add("0 3 * * *", scheduler.FuncJob(func(ctx context.Context) {
		if err := syncSvc.SyncPending(ctx); err != nil {
			logger.Warn("夜间同步失败", zap.Error(err))
		}
	})); err != nil {
		logger.Warn("注册夜间同步任务失败", zap.Error(err))
	}
	nightly.Start()
	defer nightly.Stop()

	// 实时通道
	channel := livechannel.NewClient(livechannel.Config{
		URL:        cfg.SocketURL,
		MaxRetries: cfg.ChannelRetries,
	})
	defer channel.Disconnect()

	if userID := os.Getenv("USER_ID"); userID != "" && cfg.SocketURL != "" {
		if err := channel.Connect(userID); err != nil {
			// 首次连接失败没有自动重连，排一次延迟重试
			logger.Warn("实时通道连接失败", zap.Error(err))
			sched.OnceAfter(30*time.Second, scheduler.FuncJob(func(ctx context.Context) {
				if err := channel.Connect(userID); err != nil {
					logger.Warn("实时通道重试连接失败", zap.Error(err))
				}
			}))
		}
		channel.OnNewAlert(func(msg livechannel.Message) {
			alert := decodeAlert(msg.Data)
			if alert == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if deduper.Seen(ctx, alert.ID) {
				return
			}
			util.Sig().Emit(models.SigAlertReceived, alert, userID)
		})
	}

	// HTTP 入口
	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.NewHandlers(alertSvc, syncSvc, apiCli, queue, checker, c, cfg.TriggerRate).Register(engine)

	srv := &http.Server{Addr: cfg.Addr, Handler: engine}
	go func() {
		logger.Info("SOS911 客户端核心已启动", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务退出", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP 关闭超时", zap.Error(err))
	}
	_ = fb.Stop(context.Background())
}

// decodeAlert 把通道消息的 data 还原成报警对象
func decodeAlert(data interface{}) *models.Alert {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var alert models.Alert
	if err := json.Unmarshal(raw, &alert); err != nil || alert.ID == "" {
		return nil
	}
	return &alert
}
