package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики dispatch-цикла и публикаций.
var (
	// DispatchTicks — количество выполненных dispatch-циклов.
	DispatchTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_dispatch_ticks_total",
		Help: "Total dispatch cycles executed",
	})

	// DispatchSkipped — тики, пропущенные из-за занятого guard'а.
	DispatchSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_dispatch_ticks_skipped_total",
		Help: "Dispatch ticks skipped because a previous cycle was still running",
	})

	// PostsPublished — успешно опубликованные посты.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_posts_published_total",
		Help: "Posts published successfully",
	})

	// PublishFailures — неудачные попытки публикации (будут повторены).
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_publish_failures_total",
		Help: "Failed publish attempts",
	})

	// PostsDeadLettered — посты, исчерпавшие лимит попыток.
	PostsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_posts_dead_lettered_total",
		Help: "Posts that exhausted their retry budget",
	})

	// PostsDropped — повреждённые записи, выброшенные из очереди.
	PostsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postpilot_posts_dropped_total",
		Help: "Malformed queue records dropped",
	})

	// QueueDepth — размер очереди на момент последнего тика.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "postpilot_queue_depth",
		Help: "Scheduled posts in the queue as of the last tick",
	})
)
