package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/saythanks/mobile-harness/types"
)

const (
	MetricsNamespace = "mobile_harness"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	serviceReady = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "service_ready",
		Help:      "Readiness of automation backends (1 = ready)",
	}, []string{
		"service",
		"required",
	})

	suiteResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results_total",
		Help:      "Count of suite executions by result",
	}, []string{
		"suite",
		"result",
	})

	suiteDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_duration_seconds",
		Help:      "Duration of the last execution of a suite",
	}, []string{
		"suite",
	})

	suiteExitCode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_exit_code",
		Help:      "Exit code of the last execution of a suite (-1 = not run)",
	}, []string{
		"suite",
	})

	runSuitesTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_suites",
		Help:      "Suite counts of the last run",
	}, []string{
		"run_id",
		"result",
	})

	runSuccessRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_success_rate",
		Help:      "Success rate (percent) of the last run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Total duration of the last run",
	}, []string{
		"run_id",
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

func RecordServiceStatus(status types.ServiceStatus) {
	value := 0.0
	if status.Ready {
		value = 1
	}
	serviceReady.WithLabelValues(status.Name, fmt.Sprint(status.Required)).Set(value)
}

func RecordSuiteResult(suite string, result types.SuiteResult) {
	if Debug {
		log.Debug("metric inc",
			"m", "suite_results_total",
			"suite", suite,
			"result", result.Status())
	}
	suiteResultsTotal.WithLabelValues(suite, string(result.Status())).Inc()
	suiteDuration.WithLabelValues(suite).Set(result.Duration)
	suiteExitCode.WithLabelValues(suite).Set(float64(result.ExitCode))
}

func RecordRun(runID string, summary types.SummaryStats) {
	runSuitesTotal.WithLabelValues(runID, "total").Set(float64(summary.TotalSuites))
	runSuitesTotal.WithLabelValues(runID, string(types.TestStatusPass)).Set(float64(summary.PassedSuites))
	runSuitesTotal.WithLabelValues(runID, string(types.TestStatusFail)).Set(float64(summary.FailedSuites))
	runSuccessRate.WithLabelValues(runID).Set(summary.SuccessRate)
	runDuration.WithLabelValues(runID).Set(summary.TotalDuration)
}
