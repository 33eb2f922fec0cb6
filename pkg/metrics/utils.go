package metrics

import "fmt"

// TimerFor 返回描述符 m 对应的 Timer.
// 注册表未启用时返回共享的空 Timer；否则同名重复调用返回同一实例.
func TimerFor(reg Registry, m Metric) Timer {
	if !reg.Enabled() {
		return NoopTimer()
	}

	return reg.Timer(m.Name(), metricBuilderParams(m))
}

// CounterFor 返回描述符 m 对应的 Counter，语义同 TimerFor.
func CounterFor(reg Registry, m Metric) Counter {
	if !reg.Enabled() {
		return NoopCounter()
	}

	return reg.Counter(m.Name(), metricBuilderParams(m))
}

// RegisterConstantGauge 以 value 注册常量 gauge.
// 注册表未启用时返回共享的空 Gauge；同名已注册时返回注册表的错误（ErrAlreadyRegistered）.
// 类别被过滤的 gauge 不会保存到注册表，因此重复注册也不报错.
func RegisterConstantGauge[T any](value T, reg Registry, m Metric) (Gauge[T], error) {
	if !reg.Enabled() {
		return NoopGauge[T](), nil
	}

	registered, err := reg.Register(m.Name(), NewConstantGauge(m.Name(), value, m.Categories()))
	if err != nil {
		return nil, err
	}

	g, ok := registered.(Gauge[T])
	if !ok {
		return nil, fmt.Errorf("metrics: %q registered as %T, want Gauge[%T]", m.Name(), registered, value)
	}

	return g, nil
}

func metricBuilderParams(m Metric) Params {
	return Params{Categories: m.Categories()}
}
