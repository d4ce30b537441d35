package statusapi

import "github.com/prometheus/client_golang/prometheus"

var (
	restartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llamate",
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Total number of child process restarts",
	})

	rendersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llamate",
		Subsystem: "supervisor",
		Name:      "renders_total",
		Help:      "Total number of successful config renders",
	})

	renderErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llamate",
		Subsystem: "supervisor",
		Name:      "render_errors_total",
		Help:      "Total number of failed config renders",
	})

	childUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "llamate",
		Subsystem: "supervisor",
		Name:      "child_up",
		Help:      "Whether the supervised child process is running (1) or not (0)",
	})
)

func init() {
	prometheus.MustRegister(restartsTotal, rendersTotal, renderErrorsTotal, childUp)
}

// Metrics implements supervise.Events on top of the Prometheus counters.
type Metrics struct{}

func (Metrics) Restarted() { restartsTotal.Inc() }

func (Metrics) Rendered(ok bool) {
	if ok {
		rendersTotal.Inc()
	} else {
		renderErrorsTotal.Inc()
	}
}

func (Metrics) ChildUp(up bool) {
	if up {
		childUp.Set(1)
	} else {
		childUp.Set(0)
	}
}
