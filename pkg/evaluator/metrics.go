package evaluator

import "time"

// Metrics receives engine-side counters. The engine calls it synchronously
// on the hot path, so implementations must be cheap and non-blocking. The
// surrounding service decides what to do with the numbers; the engine only
// reports them.
type Metrics interface {
	IncEvaluations()
	IncCacheHits()
	IncRuleMatches()
	ObserveLatency(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) IncEvaluations()              {}
func (nopMetrics) IncCacheHits()                {}
func (nopMetrics) IncRuleMatches()              {}
func (nopMetrics) ObserveLatency(time.Duration) {}
