package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "crypto_sheet_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry        *prometheus.Registry
	cyclesCompleted prometheus.Counter
	cycleFailures   prometheus.Counter
	fetchFailures   prometheus.Counter
	writeFailures   prometheus.Counter
	symbolsTracked  prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	cyclesCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycles_completed_total",
		Help:      "Total number of completed fetch-aggregate-write cycles.",
	})
	cycleFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycle_failures_total",
		Help:      "Total number of failed cycles.",
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fetch_failures_total",
		Help:      "Total number of cycles that failed fetching exchange data.",
	})
	writeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "sheet_write_failures_total",
		Help:      "Total number of cycles that failed writing the spreadsheet.",
	})
	symbolsTracked := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "symbols_tracked",
		Help:      "Number of symbols written in the last successful cycle.",
	})

	registry.MustRegister(cyclesCompleted, cycleFailures, fetchFailures, writeFailures, symbolsTracked)

	m := &Metrics{
		CyclesCompleted:    promCounter{cyclesCompleted},
		CycleFailures:      promCounter{cycleFailures},
		FetchFailures:      promCounter{fetchFailures},
		SheetWriteFailures: promCounter{writeFailures},
		SymbolsTracked:     promGauge{symbolsTracked},
	}

	return &Prometheus{
		Metrics:         m,
		registry:        registry,
		cyclesCompleted: cyclesCompleted,
		cycleFailures:   cycleFailures,
		fetchFailures:   fetchFailures,
		writeFailures:   writeFailures,
		symbolsTracked:  symbolsTracked,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
