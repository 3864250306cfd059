// Package metrics exposes the kernel simulator's Prometheus gauges
// (scheduler, workqueue, GUI ring depth) and the "/metrics"+"/healthz"
// debug HTTP endpoint used to observe a running instance.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the simulator's gauges under their own Prometheus
// registry so multiple test instances never collide on the global
// default registerer.
type Registry struct {
	reg *prometheus.Registry

	ReadyProcs      prometheus.Gauge
	BlockedProcs    prometheus.Gauge
	WorkqueueDepth  prometheus.Gauge
	TimerTableUsed  prometheus.Gauge
	GUIQueueDepth   prometheus.Gauge
	SyscallsHandled prometheus.Counter
	SyscallsDropped prometheus.Counter
}

// NewRegistry builds a fresh gauge set registered against its own
// prometheus.Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Registry{
		reg: reg,
		ReadyProcs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orionos",
			Subsystem: "scheduler",
			Name:      "ready_procs",
			Help:      "Number of processes currently in the Ready state.",
		}),
		BlockedProcs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orionos",
			Subsystem: "scheduler",
			Name:      "blocked_procs",
			Help:      "Number of processes currently in the Blocked state.",
		}),
		WorkqueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orionos",
			Subsystem: "workqueue",
			Name:      "depth",
			Help:      "Number of entries currently queued for deferred work.",
		}),
		TimerTableUsed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orionos",
			Subsystem: "workqueue",
			Name:      "timers_used",
			Help:      "Number of occupied slots in the timer table.",
		}),
		GUIQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orionos",
			Subsystem: "gui",
			Name:      "queue_depth",
			Help:      "Number of messages currently buffered in the GUI ring.",
		}),
		SyscallsHandled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orionos",
			Subsystem: "trap",
			Name:      "syscalls_handled_total",
			Help:      "Count of syscalls dispatched to a registered handler.",
		}),
		SyscallsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orionos",
			Subsystem: "trap",
			Name:      "syscalls_unhandled_total",
			Help:      "Count of syscalls for which no handler was registered.",
		}),
	}
}

// Handler returns the promhttp handler bound to this registry's own
// gauge set, suitable for mounting at "/metrics".
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// NewServer bundles the metrics/healthz mux into an *http.Server the
// caller can run and shut down alongside the rest of the simulator.
func NewServer(addr string, reg *Registry, ready *atomic.Bool) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", reg.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		IdleTimeout:       120 * time.Second,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}
