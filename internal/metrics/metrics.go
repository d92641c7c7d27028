package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Metrics names.
	MetricNameBuildInfo            = "resolver_setup_build_info"
	MetricNameSteps                = "resolver_setup_steps_total"
	MetricNameStepDuration         = "resolver_setup_step_duration_seconds"
	MetricNameGasUsed              = "resolver_setup_gas_used_total"
	MetricNameLastSuccessTimestamp = "resolver_setup_last_success_timestamp_seconds"

	// Labels.
	LabelVersion = "version"
	LabelCommit  = "commit"
	LabelDate    = "date"
	LabelStep    = "step"
	LabelResult  = "result"
	LabelNetwork = "network"

	// Step results.
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the resolver setup tool",
		},
		[]string{LabelVersion, LabelCommit, LabelDate},
	)

	Steps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSteps,
			Help: "Number of setup steps executed, by result",
		},
		[]string{LabelStep, LabelResult},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameStepDuration,
			Help:    "Time from submitting a setup step to its confirmation",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{LabelStep},
	)

	GasUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameGasUsed,
			Help: "Gas consumed by confirmed setup transactions",
		},
		[]string{LabelStep},
	)

	LastSuccessTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameLastSuccessTimestamp,
			Help: "Unix time of the last fully completed setup run",
		},
		[]string{LabelNetwork},
	)
)
