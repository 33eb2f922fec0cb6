package metrics

import (
	"sort"
	"time"
)

// Sample 某一时刻单个指标的读数.
type Sample struct {
	Name       string        `json:"name"`
	Kind       Kind          `json:"kind"`
	Categories Category      `json:"categories"`
	Count      uint64        `json:"count,omitempty"`
	Total      time.Duration `json:"total,omitempty"`
	Value      any           `json:"value,omitempty"`
}

// Record 一次请求执行的指标汇总，执行结束后交给 Publisher.
type Record struct {
	ExecutionID string        `json:"execution_id"`
	Service     string        `json:"service"`
	Operation   string        `json:"operation"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Attempts    int           `json:"attempts"`
	StatusCode  int           `json:"status_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Samples     []Sample      `json:"samples"`
}

// Succeeded 报告执行是否成功.
func (r Record) Succeeded() bool {
	return r.Error == ""
}

// Sample 按名称查找读数.
func (r Record) Sample(name string) (Sample, bool) {
	for _, s := range r.Samples {
		if s.Name == name {
			return s, true
		}
	}

	return Sample{}, false
}

// Snapshot 读取注册表中全部指标，按名称排序.
func Snapshot(reg Registry) []Sample {
	meters := reg.Metrics()
	samples := make([]Sample, 0, len(meters))

	for name, m := range meters {
		s := Sample{Name: name, Kind: m.Kind(), Categories: m.Categories()}

		switch v := m.(type) {
		case Timer:
			s.Count = v.Count()
			s.Total = v.Total()
		case Counter:
			s.Count = v.Count()
		case valuer:
			s.Value = v.anyValue()
		}

		samples = append(samples, s)
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })

	return samples
}
