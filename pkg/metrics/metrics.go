package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 报警客户端核心链路的指标
var (
	// AlertsSubmitted 按提交路径统计的报警数，path ∈ online|offline|rejected
	AlertsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sos911",
		Name:      "alerts_submitted_total",
		Help:      "Alerts submitted, labelled by delivery path.",
	}, []string{"path"})

	// QueueDepth 离线队列当前长度
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sos911",
		Name:      "offline_queue_depth",
		Help:      "Pending alert records awaiting sync.",
	})

	// SyncRuns 批量同步执行次数，result ∈ success|failure|skipped
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sos911",
		Name:      "sync_runs_total",
		Help:      "Offline queue sync attempts by result.",
	}, []string{"result"})

	// ChannelConnects 实时通道的连接/重连次数，kind ∈ connect|reconnect
	ChannelConnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sos911",
		Name:      "channel_connects_total",
		Help:      "Live channel connection attempts.",
	}, []string{"kind"})

	// EventsDeduped 被消费端去重丢弃的重复事件数
	EventsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sos911",
		Name:      "events_deduped_total",
		Help:      "Duplicate channel events dropped by the consumer-side deduper.",
	})
)
