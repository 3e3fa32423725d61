// Package metrics 定义密钥存储的 Prometheus 指标
//
// 所有方法在 *Metrics 为 nil 时安全调用，组件可以不启用指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 解析结果标签
const (
	ResolveCache  = "cache"
	ResolveCrypto = "crypto"
	ResolveMiss   = "miss"
)

// 持久化操作标签
const (
	OpSave   = "save"
	OpDelete = "delete"

	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// Metrics 密钥存储指标
type Metrics struct {
	PoolCapacity    prometheus.Gauge
	PoolOccupied    prometheus.Gauge
	PoolAllocations prometheus.Counter
	PoolEvictions   prometheus.Counter
	PoolExhausted   prometheus.Counter

	Resolutions *prometheus.CounterVec

	QueueDepth prometheus.Gauge
	PersistOps *prometheus.CounterVec

	ResolvingListEntries prometheus.Gauge
}

// New 在 reg 上注册并返回指标，namespace 为空时使用 "blekeys"
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "blekeys"
	}
	f := promauto.With(reg)

	return &Metrics{
		PoolCapacity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_capacity",
			Help:      "Number of key record slots in the pool",
		}),
		PoolOccupied: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_slots_occupied",
			Help:      "Number of key record slots currently holding a peer",
		}),
		PoolAllocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_allocations_total",
			Help:      "Total number of key record slots allocated",
		}),
		PoolEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_evictions_total",
			Help:      "Total number of records evicted to make room for a new peer",
		}),
		PoolExhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_exhausted_total",
			Help:      "Total number of allocations rejected because the pool was full",
		}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpa_resolutions_total",
			Help:      "Resolvable private address lookups by outcome",
		}, []string{"outcome"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "persist_queue_depth",
			Help:      "Number of entries waiting in the persistence queue",
		}),
		PersistOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_operations_total",
			Help:      "Persistence operations by kind and result",
		}, []string{"op", "result"}),
		ResolvingListEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolving_list_entries",
			Help:      "Number of identities registered in the resolving list",
		}),
	}
}

// SetPoolCapacity 设置池容量
func (m *Metrics) SetPoolCapacity(n int) {
	if m == nil {
		return
	}
	m.PoolCapacity.Set(float64(n))
}

// SetPoolOccupied 设置已占用槽位数
func (m *Metrics) SetPoolOccupied(n int) {
	if m == nil {
		return
	}
	m.PoolOccupied.Set(float64(n))
}

// IncAllocation 记录一次分配
func (m *Metrics) IncAllocation() {
	if m == nil {
		return
	}
	m.PoolAllocations.Inc()
}

// IncEviction 记录一次淘汰
func (m *Metrics) IncEviction() {
	if m == nil {
		return
	}
	m.PoolEvictions.Inc()
}

// IncExhausted 记录一次池满拒绝
func (m *Metrics) IncExhausted() {
	if m == nil {
		return
	}
	m.PoolExhausted.Inc()
}

// ObserveResolve 记录一次地址解析结果
func (m *Metrics) ObserveResolve(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// SetQueueDepth 设置队列深度
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// ObservePersist 记录一次持久化操作
func (m *Metrics) ObservePersist(op, result string) {
	if m == nil {
		return
	}
	m.PersistOps.WithLabelValues(op, result).Inc()
}

// SetResolvingListEntries 设置解析列表条目数
func (m *Metrics) SetResolvingListEntries(n int) {
	if m == nil {
		return
	}
	m.ResolvingListEntries.Set(float64(n))
}
