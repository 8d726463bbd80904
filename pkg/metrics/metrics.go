package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 冷邮件发送结果计数
	ColdEmailCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cold_email_total",
			Help: "Total number of cold email attempts by outcome",
		},
		[]string{"status", "mode"}, // status: sent, failed; mode: single, bulk
	)

	// 发送前置条件拒绝计数（未产生日志）
	ColdEmailRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cold_email_rejected_total",
			Help: "Cold email requests rejected before any send attempt",
		},
		[]string{"reason"}, // invalid_request, credentials_missing, subscription_required, quota_exceeded
	)

	// 邮件传输延迟（秒）
	TransportLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_transport_duration_seconds",
			Help:    "Mail transport send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"status", "error_type"},
	)

	// 批量发送规模
	BulkBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cold_email_bulk_recipients",
			Help:    "Recipients per bulk batch by disposition",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"disposition"}, // requested, attempted, skipped
	)

	// 匹配分数分布
	MatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of computed candidate/job match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// IncrementColdEmail 增加冷邮件发送计数
func IncrementColdEmail(status, mode string) {
	ColdEmailCount.WithLabelValues(status, mode).Inc()
}

// IncrementRejected 增加前置条件拒绝计数
func IncrementRejected(reason string) {
	ColdEmailRejected.WithLabelValues(reason).Inc()
}

// RecordTransportLatency 记录邮件传输延迟
func RecordTransportLatency(status, errorType string, duration time.Duration) {
	TransportLatency.WithLabelValues(status, errorType).Observe(duration.Seconds())
}

// RecordBulkBatch 记录批量发送规模
func RecordBulkBatch(requested, attempted, skipped int) {
	BulkBatchSize.WithLabelValues("requested").Observe(float64(requested))
	BulkBatchSize.WithLabelValues("attempted").Observe(float64(attempted))
	BulkBatchSize.WithLabelValues("skipped").Observe(float64(skipped))
}

// ObserveMatchScore 记录匹配分数
func ObserveMatchScore(score int) {
	MatchScore.Observe(float64(score))
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation, table string) {
	SlowQueryCount.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
