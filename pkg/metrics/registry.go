package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/sdkcore/pkg/configs"
)

// ErrAlreadyRegistered 同名指标已注册.
var ErrAlreadyRegistered = errors.New("metric already registered")

// Params 注册指标时携带的参数.
type Params struct {
	Categories Category
}

// Registry 单次请求执行范围内的指标注册表，供管道各阶段并发使用.
type Registry interface {
	// Timer 获取或创建名为 name 的 Timer，同名重复调用返回同一实例.
	Timer(name string, params Params) Timer
	// Counter 获取或创建名为 name 的 Counter，同名重复调用返回同一实例.
	Counter(name string, params Params) Counter
	// Register 注册一个已构造的指标，同名已存在时返回 ErrAlreadyRegistered.
	Register(name string, m Meter) (Meter, error)
	// Metrics 返回已注册指标的副本.
	Metrics() map[string]Meter
	// Enabled 报告注册表是否真正记录数据.
	Enabled() bool
}

// RegistryOption 配置 DefaultRegistry.
type RegistryOption func(*DefaultRegistry)

// WithNamespace 设置暴露到 Prometheus 时的命名空间.
func WithNamespace(namespace string) RegistryOption {
	return func(r *DefaultRegistry) { r.namespace = namespace }
}

// WithCategories 设置启用的指标类别.
func WithCategories(c Category) RegistryOption {
	return func(r *DefaultRegistry) { r.enabled = c }
}

// WithLabels 设置暴露时附加的常量标签.
func WithLabels(labels map[string]string) RegistryOption {
	return func(r *DefaultRegistry) {
		for k, v := range labels {
			r.labels[k] = v
		}
	}
}

// DefaultRegistry 基于 Prometheus 原语的注册表实现.
// 它同时是一个 unchecked prometheus.Collector，可直接注册到 prometheus.Registry.
type DefaultRegistry struct {
	mu        sync.RWMutex
	meters    map[string]Meter
	namespace string
	enabled   Category
	labels    prometheus.Labels
}

var _ prometheus.Collector = (*DefaultRegistry)(nil)

// NewDefaultRegistry 创建注册表，默认启用全部类别.
func NewDefaultRegistry(opts ...RegistryOption) *DefaultRegistry {
	r := &DefaultRegistry{
		meters:    make(map[string]Meter),
		namespace: "sdk",
		enabled:   CategoryAll,
		labels:    prometheus.Labels{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// accepts 未分类的指标总是接受.
func (r *DefaultRegistry) accepts(c Category) bool {
	return c == 0 || r.enabled.Has(c)
}

func (r *DefaultRegistry) Timer(name string, params Params) Timer {
	if !r.accepts(params.Categories) {
		return NoopTimer()
	}

	m := r.getOrCreate(name, func() Meter {
		return newTimer(name, params.Categories, prometheus.HistogramOpts{
			Namespace:   r.namespace,
			Name:        snakeCase(name) + "_seconds",
			Help:        helpFor(name),
			ConstLabels: r.labels,
			Buckets:     prometheus.DefBuckets,
		})
	})

	t, ok := m.(Timer)
	if !ok {
		panic(fmt.Sprintf("metrics: %q is registered as %s, not timer", name, m.Kind()))
	}

	return t
}

func (r *DefaultRegistry) Counter(name string, params Params) Counter {
	if !r.accepts(params.Categories) {
		return NoopCounter()
	}

	m := r.getOrCreate(name, func() Meter {
		return newCounter(name, params.Categories, prometheus.CounterOpts{
			Namespace:   r.namespace,
			Name:        snakeCase(name) + "_total",
			Help:        helpFor(name),
			ConstLabels: r.labels,
		})
	})

	c, ok := m.(Counter)
	if !ok {
		panic(fmt.Sprintf("metrics: %q is registered as %s, not counter", name, m.Kind()))
	}

	return c
}

// Register 注册 m；被类别过滤的指标原样返回且不保存，也不参与重名检查.
func (r *DefaultRegistry) Register(name string, m Meter) (Meter, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics: nil meter for %q", name)
	}

	if !r.accepts(m.Categories()) {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.meters[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	r.meters[name] = m

	return m, nil
}

func (r *DefaultRegistry) Metrics() map[string]Meter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Meter, len(r.meters))
	for k, v := range r.meters {
		out[k] = v
	}

	return out
}

func (r *DefaultRegistry) Enabled() bool { return true }

// getOrCreate 在并发首次访问下保证只创建一次.
func (r *DefaultRegistry) getOrCreate(name string, create func() Meter) Meter {
	r.mu.RLock()
	m, ok := r.meters[name]
	r.mu.RUnlock()

	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.meters[name]; ok {
		return m
	}

	m = create()
	r.meters[name] = m

	return m
}

// Describe 不发送任何描述符，注册表内容随执行变化.
func (r *DefaultRegistry) Describe(chan<- *prometheus.Desc) {}

// Collect 导出全部指标；常量 gauge 的数值导出为 gauge，字符串导出为 _info 指标.
func (r *DefaultRegistry) Collect(ch chan<- prometheus.Metric) {
	for name, m := range r.Metrics() {
		switch v := m.(type) {
		case prometheus.Collector:
			v.Collect(ch)
		case valuer:
			r.collectValue(name, v.anyValue(), ch)
		}
	}
}

func (r *DefaultRegistry) collectValue(name string, value any, ch chan<- prometheus.Metric) {
	fqName := prometheus.BuildFQName(r.namespace, "", snakeCase(name))

	if f, ok := toFloat(value); ok {
		desc := prometheus.NewDesc(fqName, helpFor(name), nil, r.labels)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, f)

		return
	}

	desc := prometheus.NewDesc(fqName+"_info", helpFor(name), []string{"value"}, r.labels)
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, fmt.Sprint(value))
}

// NoopRegistry 关闭指标时使用的注册表，所有调用都是空操作.
type NoopRegistry struct{}

func (NoopRegistry) Timer(string, Params) Timer     { return NoopTimer() }
func (NoopRegistry) Counter(string, Params) Counter { return NoopCounter() }
func (NoopRegistry) Metrics() map[string]Meter      { return map[string]Meter{} }
func (NoopRegistry) Enabled() bool                  { return false }

func (NoopRegistry) Register(_ string, m Meter) (Meter, error) {
	return m, nil
}

// NewExecutionRegistry 按配置为一次执行选择注册表实现.
func NewExecutionRegistry(cfg configs.MetricsConfig) (Registry, error) {
	if !cfg.Enabled {
		return NoopRegistry{}, nil
	}

	categories := CategoryAll
	if len(cfg.Categories) > 0 {
		c, err := ParseCategories(cfg.Categories)
		if err != nil {
			return nil, err
		}

		categories = c
	}

	return NewDefaultRegistry(
		WithNamespace(cfg.Namespace),
		WithCategories(categories),
		WithLabels(cfg.Labels),
	), nil
}

func helpFor(name string) string {
	if m, ok := LookupMetric(name); ok {
		return m.Help()
	}

	return name
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}
