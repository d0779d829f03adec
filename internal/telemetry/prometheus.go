// Package telemetry exposes evolution progress as Prometheus metrics.
package telemetry

import (
	"fmt"
	"io"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"symreg/internal/evo"
)

const namespace = "symreg"

// Metrics implements evo.Observer. One instance may observe several runs;
// the gauges always reflect the most recent generation.
type Metrics struct {
	generations   prometheus.Counter
	bestScore     prometheus.Gauge
	distinct      prometheus.Gauge
	meanSize      prometheus.Gauge
	rankDuration  prometheus.Histogram
	offspring     *prometheus.CounterVec
	nonFiniteSeen prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg falls back to a
// private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Ranking passes completed across all runs",
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Best (lowest) score of the most recent generation",
		}),
		distinct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distinct_expressions",
			Help:      "Distinct renderings in the most recent generation",
		}),
		meanSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_expression_size",
			Help:      "Mean node count of the most recent generation",
		}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Wall time spent ranking one generation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		offspring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offspring_total",
			Help:      "Individuals ranked, by how they were produced",
		}, []string{"origin"}),
		nonFiniteSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "non_finite_scores_total",
			Help:      "Individuals whose score was NaN or infinite",
		}),
	}
	for _, c := range []prometheus.Collector{m.generations, m.bestScore, m.distinct, m.meanSize, m.rankDuration, m.offspring, m.nonFiniteSeen} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) ObserveGeneration(report evo.GenerationReport) {
	m.generations.Inc()
	best := report.BestScore
	if math.IsNaN(best) {
		best = math.Inf(1)
	}
	m.bestScore.Set(best)
	m.distinct.Set(float64(report.Diagnostics.DistinctExpressions))
	m.meanSize.Set(report.Diagnostics.MeanSize)
	m.rankDuration.Observe(report.RankDuration.Seconds())
	m.nonFiniteSeen.Add(float64(report.Diagnostics.NonFiniteScores))

	counts := report.Diagnostics.Offspring
	m.offspring.WithLabelValues("seed").Add(float64(counts.Seed))
	m.offspring.WithLabelValues("elite").Add(float64(counts.Elite))
	m.offspring.WithLabelValues("bred").Add(float64(counts.Bred))
	m.offspring.WithLabelValues("fresh").Add(float64(counts.Fresh))
}

// WriteText dumps every family in g using the Prometheus text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
