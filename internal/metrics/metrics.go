package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// RewardMetrics 奖励引擎指标
type RewardMetrics struct {
	CommissionsCreatedTotal    *prometheus.CounterVec
	CommissionAmountTotal      prometheus.Counter
	TurnoverCreditsTotal       prometheus.Counter
	EventReplaysTotal          *prometheus.CounterVec
	GraphIntegrityWarningTotal prometheus.Counter
	EventsRejectedTotal        *prometheus.CounterVec
	BonusClaimsTotal           *prometheus.CounterVec
	EventProcessingDuration    *prometheus.HistogramVec
	HTTPRequestDuration        *prometheus.HistogramVec
}

// NewRewardMetrics 在指定注册器上创建指标，reg 为空时使用默认注册器
func NewRewardMetrics(reg prometheus.Registerer) *RewardMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &RewardMetrics{
		CommissionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_commissions_created_total",
				Help: "Commission records created, by level",
			},
			[]string{"level"},
		),
		CommissionAmountTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reward_commission_amount_total",
				Help: "Sum of created commission amounts in base currency",
			},
		),
		TurnoverCreditsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reward_turnover_credits_total",
				Help: "Ancestor turnover credits applied",
			},
		),
		EventReplaysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_event_replays_total",
				Help: "Duplicate deliveries absorbed by idempotence keys",
			},
			[]string{"kind"},
		),
		GraphIntegrityWarningTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "reward_graph_integrity_warnings_total",
				Help: "Ancestor walks truncated by a corrupt referral chain",
			},
		),
		EventsRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_events_rejected_total",
				Help: "Events rejected before processing",
			},
			[]string{"kind", "reason"},
		),
		BonusClaimsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_bonus_claims_total",
				Help: "Bonus claim attempts, by level and result",
			},
			[]string{"level_id", "result"},
		),
		EventProcessingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reward_event_processing_duration_seconds",
				Help:    "Event handling latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms, 10ms, 20ms...
			},
			[]string{"kind"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reward_http_request_duration_seconds",
				Help:    "HTTP request latency by route template and status class",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// RecordCommissionCreated 记录新建佣金
func (m *RewardMetrics) RecordCommissionCreated(level string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.CommissionsCreatedTotal.WithLabelValues(level).Inc()
	m.CommissionAmountTotal.Add(amount.InexactFloat64())
}

// RecordTurnoverCredits 记录业绩入账次数
func (m *RewardMetrics) RecordTurnoverCredits(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.TurnoverCreditsTotal.Add(float64(count))
}

// RecordReplay 记录重复投递
func (m *RewardMetrics) RecordReplay(kind string) {
	if m == nil {
		return
	}
	m.EventReplaysTotal.WithLabelValues(kind).Inc()
}

// RecordGraphIntegrityWarning 记录推荐链损坏告警
func (m *RewardMetrics) RecordGraphIntegrityWarning() {
	if m == nil {
		return
	}
	m.GraphIntegrityWarningTotal.Inc()
}

// RecordRejected 记录被拒绝的事件
func (m *RewardMetrics) RecordRejected(kind, reason string) {
	if m == nil {
		return
	}
	m.EventsRejectedTotal.WithLabelValues(kind, reason).Inc()
}

// RecordBonusClaim 记录奖励领取结果
func (m *RewardMetrics) RecordBonusClaim(levelID, result string) {
	if m == nil {
		return
	}
	m.BonusClaimsTotal.WithLabelValues(levelID, result).Inc()
}

// ObserveEventDuration 记录事件处理耗时
func (m *RewardMetrics) ObserveEventDuration(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.EventProcessingDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveHTTPRequest 记录接口耗时，route 使用路由模板避免高基数
func (m *RewardMetrics) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(seconds)
}
