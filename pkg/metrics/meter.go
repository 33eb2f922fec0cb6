package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Kind 指标类型.
type Kind uint8

const (
	KindTimer Kind = iota + 1
	KindCounter
	KindGauge
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// MarshalText 以名称编码类型.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 解析类型名称.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "timer":
		*k = KindTimer
	case "counter":
		*k = KindCounter
	case "gauge":
		*k = KindGauge
	default:
		return fmt.Errorf("unknown metric kind %q", text)
	}

	return nil
}

// Meter 所有指标实例的公共能力.
type Meter interface {
	Name() string
	Kind() Kind
	Categories() Category
}

// Timer 记录耗时.
type Timer interface {
	Meter
	// Record 记录一次耗时.
	Record(d time.Duration)
	// Time 执行 fn 并记录其耗时.
	Time(fn func()) time.Duration
	// Count 已记录的次数.
	Count() uint64
	// Total 已记录耗时之和.
	Total() time.Duration
}

// Counter 单调递增计数器.
type Counter interface {
	Meter
	Inc()
	Add(n uint64)
	Count() uint64
}

// Gauge 读取一个值的指标.
type Gauge[T any] interface {
	Meter
	Value() T
}

// valuer 由常量 gauge 实现，供快照与暴露读取任意类型的值.
type valuer interface {
	anyValue() any
}

type timer struct {
	name       string
	categories Category
	hist       prometheus.Histogram
}

func newTimer(name string, categories Category, opts prometheus.HistogramOpts) *timer {
	return &timer{name: name, categories: categories, hist: prometheus.NewHistogram(opts)}
}

func (t *timer) Name() string         { return t.name }
func (t *timer) Kind() Kind           { return KindTimer }
func (t *timer) Categories() Category { return t.categories }

func (t *timer) Record(d time.Duration) {
	t.hist.Observe(d.Seconds())
}

func (t *timer) Time(fn func()) time.Duration {
	start := time.Now()

	fn()

	d := time.Since(start)
	t.Record(d)

	return d
}

func (t *timer) Count() uint64 {
	return t.read().GetSampleCount()
}

func (t *timer) Total() time.Duration {
	return time.Duration(t.read().GetSampleSum() * float64(time.Second))
}

func (t *timer) read() *dto.Histogram {
	var m dto.Metric
	if err := t.hist.Write(&m); err != nil {
		return &dto.Histogram{}
	}

	return m.GetHistogram()
}

func (t *timer) Describe(ch chan<- *prometheus.Desc) { t.hist.Describe(ch) }
func (t *timer) Collect(ch chan<- prometheus.Metric) { t.hist.Collect(ch) }

type counter struct {
	name       string
	categories Category
	c          prometheus.Counter
}

func newCounter(name string, categories Category, opts prometheus.CounterOpts) *counter {
	return &counter{name: name, categories: categories, c: prometheus.NewCounter(opts)}
}

func (c *counter) Name() string         { return c.name }
func (c *counter) Kind() Kind           { return KindCounter }
func (c *counter) Categories() Category { return c.categories }
func (c *counter) Inc()                 { c.c.Inc() }
func (c *counter) Add(n uint64)         { c.c.Add(float64(n)) }

func (c *counter) Count() uint64 {
	var m dto.Metric
	if err := c.c.Write(&m); err != nil {
		return 0
	}

	return uint64(m.GetCounter().GetValue())
}

func (c *counter) Describe(ch chan<- *prometheus.Desc) { c.c.Describe(ch) }
func (c *counter) Collect(ch chan<- prometheus.Metric) { c.c.Collect(ch) }

// ConstantGauge 值在创建后不再变化的 gauge，同一注册表内同名只能注册一次.
type ConstantGauge[T any] struct {
	name       string
	categories Category
	value      T
}

// NewConstantGauge 创建常量 gauge.
func NewConstantGauge[T any](name string, value T, categories Category) *ConstantGauge[T] {
	return &ConstantGauge[T]{name: name, categories: categories, value: value}
}

func (g *ConstantGauge[T]) Name() string         { return g.name }
func (g *ConstantGauge[T]) Kind() Kind           { return KindGauge }
func (g *ConstantGauge[T]) Categories() Category { return g.categories }
func (g *ConstantGauge[T]) Value() T             { return g.value }
func (g *ConstantGauge[T]) anyValue() any        { return g.value }

// 空实现，丢弃所有数据；同类型实例彼此相等.
type (
	noopTimer        struct{}
	noopCounter      struct{}
	noopGauge[T any] struct{}
)

func (noopTimer) Name() string         { return "" }
func (noopTimer) Kind() Kind           { return KindTimer }
func (noopTimer) Categories() Category { return 0 }
func (noopTimer) Record(time.Duration) {}
func (noopTimer) Count() uint64        { return 0 }
func (noopTimer) Total() time.Duration { return 0 }

func (noopTimer) Time(fn func()) time.Duration {
	start := time.Now()

	fn()

	return time.Since(start)
}

func (noopCounter) Name() string         { return "" }
func (noopCounter) Kind() Kind           { return KindCounter }
func (noopCounter) Categories() Category { return 0 }
func (noopCounter) Inc()                 {}
func (noopCounter) Add(uint64)           {}
func (noopCounter) Count() uint64        { return 0 }

func (noopGauge[T]) Name() string         { return "" }
func (noopGauge[T]) Kind() Kind           { return KindGauge }
func (noopGauge[T]) Categories() Category { return 0 }

func (noopGauge[T]) Value() T {
	var zero T

	return zero
}

// NoopTimer 返回共享的空 Timer.
func NoopTimer() Timer { return noopTimer{} }

// NoopCounter 返回共享的空 Counter.
func NoopCounter() Counter { return noopCounter{} }

// NoopGauge 返回共享的空 Gauge.
func NoopGauge[T any]() Gauge[T] { return noopGauge[T]{} }
