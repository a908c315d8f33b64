package importer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 导入管道指标
type Metrics struct {
	Runs          *prometheus.CounterVec
	Duration      prometheus.Histogram
	LoadedRecords prometheus.Gauge
	Incomplete    prometheus.Gauge
}

// NewMetrics 创建并注册导入指标；reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "millscope",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Workbook pipeline runs by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "millscope",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Workbook pipeline duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		LoadedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "millscope",
			Name:      "loaded_records",
			Help:      "Merged mill-month records in the current dataset.",
		}),
		Incomplete: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "millscope",
			Name:      "incomplete_mills",
			Help:      "Mills flagged incomplete in the current dataset.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Duration, m.LoadedRecords, m.Incomplete)
	}
	return m
}
