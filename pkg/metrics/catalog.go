package metrics

import (
	"fmt"
	"strings"
	"unicode"
)

// Metric 指标描述符：名称、类型、说明与所属类别.
// 描述符是不可变的值，作为注册时的键与规格.
type Metric struct {
	name       string
	kind       Kind
	help       string
	categories Category
}

// NewMetric 创建一个指标描述符.
func NewMetric(name string, kind Kind, help string, categories Category) Metric {
	return Metric{name: name, kind: kind, help: help, categories: categories}
}

// Name 指标名称.
func (m Metric) Name() string { return m.name }

// Kind 指标类型.
func (m Metric) Kind() Kind { return m.kind }

// Help 指标说明.
func (m Metric) Help() string { return m.help }

// Categories 指标所属类别.
func (m Metric) Categories() Category { return m.categories }

// PrometheusName 返回 snake_case 形式的名称，用于 Prometheus 暴露.
func (m Metric) PrometheusName() string { return snakeCase(m.name) }

func (m Metric) String() string {
	return fmt.Sprintf("%s(%s,%s)", m.name, m.kind, m.categories)
}

// SDK 默认指标.
var (
	Service = NewMetric("ServiceId", KindGauge,
		"The unique ID for the service.", CategoryCore)
	Operation = NewMetric("OperationName", KindGauge,
		"The name of the service operation being invoked.", CategoryCore)
	APICallLatency = NewMetric("ApiCallLatency", KindTimer,
		"The total time taken to finish a request, inclusive of all retries.", CategoryCore)
	APICallAttemptCount = NewMetric("ApiCallAttemptCount", KindCounter,
		"The number of HTTP attempts made for the call.", CategoryCore)
	APICallAttemptLatency = NewMetric("ApiCallAttemptLatency", KindTimer,
		"The time taken by a single HTTP attempt.", CategoryCore)
	HTTPRequestRoundTripLatency = NewMetric("HttpRequestRoundTripLatency", KindTimer,
		"The time taken to send the request and receive the response headers.", CategoryHTTPClient)
	MarshallingLatency = NewMetric("MarshallingLatency", KindTimer,
		"The time taken to marshall the request.", CategoryCore)
	RetryCount = NewMetric("RetryCount", KindCounter,
		"The number of retries the SDK performed for the call.", CategoryCore)
	Exception = NewMetric("Exception", KindCounter,
		"The number of attempts that ended with an error.", CategoryCore)
	HTTPStatusCode = NewMetric("HttpStatusCode", KindGauge,
		"The status code of the final HTTP response.", CategoryHTTPClient)
	PayloadSize = NewMetric("PayloadSize", KindGauge,
		"The size of the request payload in bytes.", CategoryCore)
)

// defaultMetrics 进程级只读描述符表.
var defaultMetrics = []Metric{
	Service,
	Operation,
	APICallLatency,
	APICallAttemptCount,
	APICallAttemptLatency,
	HTTPRequestRoundTripLatency,
	MarshallingLatency,
	RetryCount,
	Exception,
	HTTPStatusCode,
	PayloadSize,
}

// DefaultMetrics 返回默认描述符表的副本.
func DefaultMetrics() []Metric {
	out := make([]Metric, len(defaultMetrics))
	copy(out, defaultMetrics)

	return out
}

// LookupMetric 按名称查找默认描述符.
func LookupMetric(name string) (Metric, bool) {
	for _, m := range defaultMetrics {
		if m.name == name {
			return m, true
		}
	}

	return Metric{}, false
}

// snakeCase 把 ApiCallLatency 形式的名称转换为 api_call_latency.
func snakeCase(name string) string {
	runes := []rune(name)

	var b strings.Builder

	b.Grow(len(name) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
