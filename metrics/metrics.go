package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "pyshake"
)

var (
	Debug                bool = false
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cycles_total",
		Help:      "Count of executed test cycles",
	}, []string{
		"run_id",
	})

	cycleDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of the most recent test cycle",
	}, []string{
		"run_id",
	})

	cycleActiveTests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "cycle_active_tests",
		Help:      "Number of tests still active in the most recent cycle",
	}, []string{
		"run_id",
	})

	testResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_results_total",
		Help:      "Count of per-test cycle results by outcome",
	}, []string{
		"run_id",
		"test",
		"outcome",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCycle records one completed cycle of the run.
func RecordCycle(runID string, activeTests int, duration time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "cycles_total",
			"run_id", runID,
			"active", activeTests,
			"duration", duration)
	}
	cyclesTotal.WithLabelValues(runID).Inc()
	cycleDuration.WithLabelValues(runID).Set(duration.Seconds())
	cycleActiveTests.WithLabelValues(runID).Set(float64(activeTests))
}

// RecordTestResult records a single test's outcome from one cycle.
func RecordTestResult(runID string, test string, outcome string) {
	if Debug {
		log.Debug("metric inc",
			"m", "test_results_total",
			"run_id", runID,
			"test", test,
			"outcome", outcome)
	}
	testResultsTotal.WithLabelValues(runID, test, outcome).Inc()
}
