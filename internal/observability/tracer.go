// File: internal/observability/tracer.go
package observability

import (
	"go.uber.org/zap"
)

// StepReporter receives human-readable step boundaries, typically to build
// the step tree of a test report. Steps nest: every StartStep is matched by
// exactly one StopStep, in LIFO order.
type StepReporter interface {
	StartStep(name string)
	StopStep(err error)
}

// Tracer instruments method calls at the page-object boundary. Each call is
// logged on entry and exit (or failure) and, when a StepReporter is attached,
// bracketed by a report step.
//
// A nil *Tracer is valid and simply runs the wrapped function.
type Tracer struct {
	logger *zap.Logger
	steps  StepReporter
}

// NewTracer creates a tracer. Either argument may be nil.
func NewTracer(logger *zap.Logger, steps StepReporter) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger, steps: steps}
}

// WithSteps returns a copy of the tracer that reports to steps.
func (t *Tracer) WithSteps(steps StepReporter) *Tracer {
	if t == nil {
		return NewTracer(nil, steps)
	}
	return &Tracer{logger: t.logger, steps: steps}
}

// Logger returns the tracer's logger, never nil.
func (t *Tracer) Logger() *zap.Logger {
	if t == nil {
		return zap.NewNop()
	}
	return t.logger
}

// Do traces a call that only returns an error.
func (t *Tracer) Do(method string, args []any, step string, fn func() error) error {
	_, err := Call(t, method, args, step, func() (any, error) {
		return nil, fn()
	})
	return err
}

// Call traces fn under the given method name. args are logged on entry and
// the result on exit; a returned error is logged at error level and handed
// back unchanged.
func Call[T any](t *Tracer, method string, args []any, step string, fn func() (T, error)) (T, error) {
	if t == nil {
		return fn()
	}

	t.logger.Debug("Entering", zap.String("method", method), zap.Any("args", args))
	if t.steps != nil && step != "" {
		t.steps.StartStep(step)
	}

	result, err := fn()

	if t.steps != nil && step != "" {
		t.steps.StopStep(err)
	}
	if err != nil {
		t.logger.Error("Exception", zap.String("method", method), zap.Error(err))
		return result, err
	}
	t.logger.Debug("Exiting", zap.String("method", method), zap.Any("result", result))
	return result, nil
}

// Masked replaces a secret argument in logs and step labels.
const Masked = "********"
