package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	printerPauses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "powermand",
			Subsystem: "printer",
			Name:      "pauses_total",
			Help:      "Number of pause commands issued ahead of outage windows.",
		},
	)
	printerResumes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "powermand",
			Subsystem: "printer",
			Name:      "resumes_total",
			Help:      "Number of resume commands issued after outage windows.",
		},
	)
	printerScriptErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "powermand",
			Subsystem: "printer",
			Name:      "script_errors_total",
			Help:      "Number of Moonraker script calls that failed.",
		},
	)
	printerPaused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "powermand",
			Subsystem: "printer",
			Name:      "paused",
			Help:      "1 while the print is paused for an outage window.",
		},
	)
	scheduleFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "powermand",
			Subsystem: "outage",
			Name:      "schedule_fetch_errors_total",
			Help:      "Number of outage schedule fetches that failed.",
		},
	)
	outageWindows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "powermand",
			Subsystem: "outage",
			Name:      "windows",
			Help:      "Definite outage windows in the table being watched.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{printerPauses, printerResumes, printerScriptErrors, printerPaused, scheduleFetchErrors, outageWindows}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncPause() {
	if regOK.Load() {
		printerPauses.Inc()
	}
}

func IncResume() {
	if regOK.Load() {
		printerResumes.Inc()
	}
}

func IncScriptError() {
	if regOK.Load() {
		printerScriptErrors.Inc()
	}
}

func SetPaused(paused bool) {
	if regOK.Load() {
		var v float64
		if paused {
			v = 1
		}
		printerPaused.Set(v)
	}
}

func IncScheduleFetchError() {
	if regOK.Load() {
		scheduleFetchErrors.Inc()
	}
}

func SetOutageWindows(n int) {
	if regOK.Load() {
		outageWindows.Set(float64(n))
	}
}
