package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry 应用私有指标注册表，/metrics 端点从此处导出
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequests HTTP 请求计数（按路由模板与状态码）
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avashift",
		Name:      "http_requests_total",
		Help:      "HTTP 请求总数",
	}, []string{"method", "route", "status"})

	// HTTPLatency HTTP 请求耗时
	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "avashift",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP 请求耗时（秒）",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// VerificationCodes 签到码事件（issued / reused / confirmed / expired）
	VerificationCodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avashift",
		Name:      "verification_codes_total",
		Help:      "签到码生命周期事件数",
	}, []string{"event"})

	// RequestsReviewed 申请审批结果（按类型与结果）
	RequestsReviewed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avashift",
		Name:      "admin_requests_reviewed_total",
		Help:      "已审批的申请数",
	}, []string{"type", "status"})

	// Notifications 通知投递结果（sent / failed / dropped）
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avashift",
		Name:      "notifications_total",
		Help:      "通知投递结果",
	}, []string{"result"})

	// SweeperRuns 定时任务执行次数（按任务与结果）
	SweeperRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avashift",
		Name:      "sweeper_runs_total",
		Help:      "定时任务执行次数",
	}, []string{"job", "result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPLatency,
		VerificationCodes,
		RequestsReviewed,
		Notifications,
		SweeperRuns,
	)
}
