package handlers

import (
	"SOS911/internal/api"
	"SOS911/internal/service"
	"SOS911/internal/store"
	"SOS911/pkg/cache"
	"SOS911/pkg/connectivity"
	"SOS911/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	alerts  *service.AlertService
	sync    *service.SyncService
	api     *api.Client
	queue   *store.QueueStore
	checker connectivity.Checker
	cache   cache.Cache

	triggerRate string
}

func NewHandlers(alerts *service.AlertService, sync *service.SyncService, apiCli *api.Client,
	queue *store.QueueStore, checker connectivity.Checker, c cache.Cache, triggerRate string) *Handlers {
	return &Handlers{
		alerts:      alerts,
		sync:        sync,
		api:         apiCli,
		queue:       queue,
		checker:     checker,
		cache:       c,
		triggerRate: triggerRate,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	h.registerSystemRoutes(engine)

	r := engine.Group("/alertas")
	{
		// 触发接口按用户限流，防异常重复触发
		r.POST("", middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:       h.triggerRate,
			Identifier: "user",
		}), h.handleTriggerAlert)

		r.POST("/:id/detener", h.handleStopEmergency)
		r.POST("/sync", h.handleSyncNow)
		r.GET("/cercanas", h.handleNearby)
		r.GET("/historial/:userId", h.handleHistory)
		r.GET("/notificaciones/:userId", h.handleNotifications)
	}
}

func (h *Handlers) registerSystemRoutes(engine *gin.Engine) {
	engine.GET("/health", h.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
