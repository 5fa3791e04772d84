// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フィード組み立て・スレッド取得・ワーカーから利用する。
type MetricsCollector interface {
	RecordFeedPage(phase string, posts int)
	RecordFeedFailure(reason string)
	RecordAssembleLatency(duration time.Duration)
	RecordThreadNodes(count int)
	RecordHTTPStatus(statusCode int)
	RecordEngagementRecompute(upserted, removed int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	feedPages          *prometheus.CounterVec
	postsDelivered     prometheus.Counter
	feedFailures       *prometheus.CounterVec
	assembleLatency    prometheus.Histogram
	threadNodes        prometheus.Counter
	httpStatus         *prometheus.CounterVec
	engagementUpserted prometheus.Counter
	engagementRemoved  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshare_feed_pages_total",
			Help: "フェーズ別のフィードページ配信数",
		}, []string{"phase"}),
		postsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapshare_feed_posts_delivered_total",
			Help: "フィードで配信した投稿の合計数",
		}),
		feedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshare_feed_failures_total",
			Help: "原因別のフィード組み立て失敗数",
		}, []string{"reason"}),
		assembleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "snapshare_feed_assemble_latency_seconds",
			Help:    "フィード組み立て（カーソル書き込みまで）のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		threadNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapshare_thread_nodes_delivered_total",
			Help: "配信したコメントノードの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshare_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		engagementUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapshare_engagement_rows_upserted_total",
			Help: "再集計で更新された交流数の行数",
		}),
		engagementRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapshare_engagement_rows_removed_total",
			Help: "再集計で削除された交流数の行数",
		}),
	}

	reg.MustRegister(
		c.feedPages,
		c.postsDelivered,
		c.feedFailures,
		c.assembleLatency,
		c.threadNodes,
		c.httpStatus,
		c.engagementUpserted,
		c.engagementRemoved,
	)

	return c
}

// RecordFeedPage はフィードページの配信を記録する。
func (c *Collector) RecordFeedPage(phase string, posts int) {
	c.feedPages.WithLabelValues(phase).Inc()
	c.postsDelivered.Add(float64(posts))
}

// RecordFeedFailure はフィード組み立ての失敗を記録する。
func (c *Collector) RecordFeedFailure(reason string) {
	c.feedFailures.WithLabelValues(reason).Inc()
}

// RecordAssembleLatency はフィード組み立てのレイテンシを記録する。
func (c *Collector) RecordAssembleLatency(duration time.Duration) {
	c.assembleLatency.Observe(duration.Seconds())
}

// RecordThreadNodes は配信したコメントノード数を記録する。
func (c *Collector) RecordThreadNodes(count int) {
	c.threadNodes.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordEngagementRecompute は交流数の再集計結果を記録する。
func (c *Collector) RecordEngagementRecompute(upserted, removed int64) {
	c.engagementUpserted.Add(float64(upserted))
	c.engagementRemoved.Add(float64(removed))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordFeedPage(string, int)             {}
func (Nop) RecordFeedFailure(string)               {}
func (Nop) RecordAssembleLatency(time.Duration)    {}
func (Nop) RecordThreadNodes(int)                  {}
func (Nop) RecordHTTPStatus(int)                   {}
func (Nop) RecordEngagementRecompute(int64, int64) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
