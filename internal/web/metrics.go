package web

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the control interface instrumentation.
type metrics struct {
	launches       prometheus.Counter
	launchFailures prometheus.Counter
	stops          prometheus.Counter
}

func newMetrics(reg *prometheus.Registry, sup Supervisor) *metrics {
	m := &metrics{
		launches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tbman_launches_total",
			Help: "Total number of successful instance launches",
		}),
		launchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tbman_launch_failures_total",
			Help: "Total number of failed instance launches",
		}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tbman_stops_total",
			Help: "Total number of instance stops",
		}),
	}
	// Live count is read from the supervisor on scrape so replayed
	// instances are included without any handler bookkeeping.
	live := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tbman_instances_live",
		Help: "Number of live TensorBoard instances",
	}, func() float64 {
		return float64(len(sup.Instances()))
	})
	reg.MustRegister(m.launches, m.launchFailures, m.stops, live)
	return m
}
