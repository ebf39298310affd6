package obstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Call outcomes recorded on the calls counter.
const (
	outcomeOK          = "ok"
	outcomeNotFound    = "not_found"
	outcomeForbidden   = "forbidden"
	outcomeRejected    = "rejected"
	outcomeUnavailable = "unavailable"
	outcomeFailed      = "failed"
)

// instruments records every public SDK call. A nil *instruments is valid and records nothing.
type instruments struct {
	log     *zap.Logger
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func newInstruments(log *zap.Logger, reg prometheus.Registerer) (*instruments, error) {
	ins := &instruments{log: log}
	if reg == nil {
		return ins, nil
	}

	calls, err := adopt(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obstore",
		Subsystem: "sdk",
		Name:      "calls_total",
		Help:      "SDK calls by method and outcome.",
	}, []string{"method", "outcome"}))
	if err != nil {
		return nil, err
	}
	latency, err := adopt(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "obstore",
		Subsystem: "sdk",
		Name:      "call_duration_seconds",
		Help:      "SDK call latency by method.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method"}))
	if err != nil {
		return nil, err
	}
	ins.calls, ins.latency = calls, latency
	return ins, nil
}

// adopt registers c, or returns the collector of the same shape a previous
// client already registered on reg.
func adopt[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var dup prometheus.AlreadyRegisteredError
	if !errors.As(err, &dup) {
		return c, fmt.Errorf("obstore: register metric: %w", err)
	}
	prev, ok := dup.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("obstore: metric registered as %T", dup.ExistingCollector)
	}
	return prev, nil
}

// track starts timing method. Call the returned func with the address of
// the method's named error once it returns:
//
//	defer s.ins.track("get")(&err)
func (i *instruments) track(method string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		if i == nil {
			return
		}
		var err error
		if errp != nil {
			err = *errp
		}
		i.record(method, time.Since(start), err)
	}
}

func (i *instruments) record(method string, took time.Duration, err error) {
	outcome := outcomeOf(err)
	if i.calls != nil {
		i.calls.WithLabelValues(method, outcome).Inc()
		i.latency.WithLabelValues(method).Observe(took.Seconds())
	}
	if i.log == nil {
		return
	}

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("outcome", outcome),
		zap.Duration("took", took),
	}
	switch outcome {
	case outcomeOK:
		i.log.Debug("sdk call", fields...)
	case outcomeNotFound, outcomeForbidden, outcomeRejected:
		i.log.Info("sdk call refused", append(fields, zap.Error(err))...)
	default:
		i.log.Warn("sdk call failed", append(fields, zap.Error(err))...)
	}
}

// outcomeOf buckets err by the sentinel class callers branch on.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, ErrInvariantViolation):
		return outcomeRejected
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrTimeout):
		return outcomeUnavailable
	default:
		return outcomeFailed
	}
}
