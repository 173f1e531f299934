package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const affeNamespace = "affe"

const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	metricCompileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: affeNamespace,
			Name:      "compile_total",
			Help:      "Script compilations by result",
		},
		[]string{"result"},
	)

	metricInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: affeNamespace,
			Name:      "invocations_total",
			Help:      "Compiled function invocations by result",
		},
		[]string{"result"},
	)

	metricCompileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: affeNamespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling scripts",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricCompileTotal,
		metricInvocationsTotal,
		metricCompileDuration,
	)
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}

// CompileDone records a finished compilation.
func CompileDone(d time.Duration, err error) {
	metricCompileTotal.WithLabelValues(result(err)).Inc()
	metricCompileDuration.Observe(d.Seconds())
}

// InvocationDone records a finished invocation of a compiled function.
func InvocationDone(err error) {
	metricInvocationsTotal.WithLabelValues(result(err)).Inc()
}
