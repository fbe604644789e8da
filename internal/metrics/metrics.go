// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ルーター、プレゼンス、WebSocketトランスポートから利用する。
type MetricsCollector interface {
	RecordMessageRouted()
	RecordMessageDelivered()
	RecordPersistFailure()
	RecordForwardFailure()
	RecordPresenceBroadcast(online int)
	RecordHistoryQueryDuration(duration time.Duration)
	RecordConnectionOpened()
	RecordConnectionClosed()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	messagesRouted     prometheus.Counter
	messagesDelivered  prometheus.Counter
	persistFail        prometheus.Counter
	forwardFail        prometheus.Counter
	presenceBroadcasts prometheus.Counter
	historyLatency     prometheus.Histogram
	wsConnections      prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatman_messages_routed_total",
			Help: "永続化に成功したメッセージの合計数",
		}),
		messagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatman_messages_delivered_total",
			Help: "オンライン受信者へライブ配信されたメッセージの合計数",
		}),
		persistFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatman_messages_persist_fail_total",
			Help: "メッセージ永続化失敗の合計数",
		}),
		forwardFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatman_forward_fail_total",
			Help: "ライブ配信失敗（握りつぶし）の合計数",
		}),
		presenceBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatman_presence_broadcasts_total",
			Help: "プレゼンス全体配信の合計数",
		}),
		historyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatman_history_query_seconds",
			Help:    "会話履歴クエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chatman_ws_connections",
			Help: "現在のWebSocket接続数",
		}),
	}

	reg.MustRegister(
		c.messagesRouted,
		c.messagesDelivered,
		c.persistFail,
		c.forwardFail,
		c.presenceBroadcasts,
		c.historyLatency,
		c.wsConnections,
	)

	return c
}

// RecordMessageRouted はメッセージ永続化成功を記録する。
func (c *Collector) RecordMessageRouted() {
	c.messagesRouted.Inc()
}

// RecordMessageDelivered はライブ配信成功を記録する。
func (c *Collector) RecordMessageDelivered() {
	c.messagesDelivered.Inc()
}

// RecordPersistFailure は永続化失敗を記録する。
func (c *Collector) RecordPersistFailure() {
	c.persistFail.Inc()
}

// RecordForwardFailure はライブ配信失敗を記録する。
func (c *Collector) RecordForwardFailure() {
	c.forwardFail.Inc()
}

// RecordPresenceBroadcast はプレゼンス配信を記録する。
func (c *Collector) RecordPresenceBroadcast(online int) {
	c.presenceBroadcasts.Inc()
}

// RecordHistoryQueryDuration は履歴クエリのレイテンシを記録する。
func (c *Collector) RecordHistoryQueryDuration(duration time.Duration) {
	c.historyLatency.Observe(duration.Seconds())
}

// RecordConnectionOpened はWebSocket接続の確立を記録する。
func (c *Collector) RecordConnectionOpened() {
	c.wsConnections.Inc()
}

// RecordConnectionClosed はWebSocket接続の切断を記録する。
func (c *Collector) RecordConnectionClosed() {
	c.wsConnections.Dec()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
