package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

// FamilySummary 单个指标族的汇总值.
// 计数器与 gauge 为所有序列之和，直方图与摘要为样本数.
type FamilySummary struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Series int     `json:"series"`
	Value  float64 `json:"value"`
}

// Reporter 定期把进程级指标汇总写入日志.
type Reporter struct {
	gatherer prometheus.Gatherer
	prefix   string
	interval time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	scheduler gocron.Scheduler
}

// NewReporter 创建 Reporter；prefix 非空时只汇总以其开头的指标族.
func NewReporter(gatherer prometheus.Gatherer, prefix string, interval time.Duration, logger zerolog.Logger) *Reporter {
	return &Reporter{gatherer: gatherer, prefix: prefix, interval: interval, logger: logger}
}

// Start 启动周期任务，interval 不大于 0 时不做任何事.
func (r *Reporter) Start() error {
	if r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler != nil {
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create reporter scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.Report(); err != nil {
				r.logger.Warn().Err(err).Msg("metrics report failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()

		return fmt.Errorf("schedule metrics report: %w", err)
	}

	s.Start()
	r.scheduler = s

	return nil
}

// Stop 停止周期任务.
func (r *Reporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler == nil {
		return nil
	}

	err := r.scheduler.Shutdown()
	r.scheduler = nil

	return err
}

// Report 采集一次并写日志，返回按名称排序的汇总.
func (r *Reporter) Report() ([]FamilySummary, error) {
	families, err := r.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	summaries := make([]FamilySummary, 0, len(families))

	for _, mf := range families {
		if r.prefix != "" && !strings.HasPrefix(mf.GetName(), r.prefix) {
			continue
		}

		summaries = append(summaries, summarize(mf))
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	event := zerolog.Dict()
	for _, s := range summaries {
		event.Float64(s.Name, s.Value)
	}

	r.logger.Info().Int("families", len(summaries)).Dict("summary", event).Msg("metrics report")

	return summaries, nil
}

func summarize(mf *dto.MetricFamily) FamilySummary {
	s := FamilySummary{
		Name:   mf.GetName(),
		Type:   strings.ToLower(mf.GetType().String()),
		Series: len(mf.GetMetric()),
	}

	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			s.Value += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			s.Value += m.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			s.Value += float64(m.GetHistogram().GetSampleCount())
		case dto.MetricType_SUMMARY:
			s.Value += float64(m.GetSummary().GetSampleCount())
		default:
			s.Value += m.GetUntyped().GetValue()
		}
	}

	return s
}
