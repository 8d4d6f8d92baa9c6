package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(float64)
}

type Metrics struct {
	CyclesCompleted    Counter
	CycleFailures      Counter
	FetchFailures      Counter
	SheetWriteFailures Counter
	SymbolsTracked     Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	c := noopCounter{}
	return &Metrics{
		CyclesCompleted:    c,
		CycleFailures:      c,
		FetchFailures:      c,
		SheetWriteFailures: c,
		SymbolsTracked:     noopGauge{},
	}
}
