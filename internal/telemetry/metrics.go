// Package telemetry exports store activity as Prometheus metrics.
package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/evanschultz/beacon/internal/store"
)

// Dispatch outcomes reported on the dispatch counter.
const (
	OutcomeCommitted = "committed"
	OutcomeMissing   = "missing"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// StateFunc returns the current store state for gauge collection.
type StateFunc func() store.State

// Recorder implements app.ActionObserver over a dedicated registry.
type Recorder struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	violations *prometheus.CounterVec
}

// NewRecorder registers the beacon collectors on a fresh registry. state may be nil.
func NewRecorder(state StateFunc) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	r := &Recorder{
		registry: reg,
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_store_dispatch_total",
			Help: "Store actions dispatched, by kind and outcome",
		}, []string{"kind", "outcome"}),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_store_validation_violations_total",
			Help: "Progress violations found by the post-commit validation pass, by action kind",
		}, []string{"kind"}),
	}
	if state != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "beacon_initiatives_active",
			Help: "Initiatives not archived",
		}, func() float64 {
			return float64(countArchived(state(), false))
		})
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "beacon_initiatives_archived",
			Help: "Archived initiatives",
		}, func() float64 {
			return float64(countArchived(state(), true))
		})
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "beacon_store_error_active",
			Help: "1 while the store carries an error banner",
		}, func() float64 {
			if state().HasError() {
				return 1
			}
			return 0
		})
	}
	return r
}

// Registry returns the registry to expose over HTTP.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDispatch records one dispatch outcome.
func (r *Recorder) ObserveDispatch(kind store.Kind, res store.Result, err error) {
	if len(res.Violations) > 0 {
		r.violations.WithLabelValues(string(kind)).Add(float64(len(res.Violations)))
	}
	r.dispatches.WithLabelValues(string(kind), outcome(res, err)).Inc()
}

func outcome(res store.Result, err error) string {
	var validation *store.ValidationError
	switch {
	case errors.As(err, &validation):
		return OutcomeRejected
	case errors.Is(err, store.ErrInitiativeNotFound):
		return OutcomeMissing
	case err != nil:
		return OutcomeError
	case !res.Found:
		return OutcomeMissing
	}
	return OutcomeCommitted
}

func countArchived(state store.State, archived bool) int {
	n := 0
	for _, initiative := range state.Initiatives {
		if initiative.Archived == archived {
			n++
		}
	}
	return n
}
