package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

const DefaultServiceName = "automation"

type Manager struct {
	serviceName          string
	tracerShutdownFunc   func() error
	profilerShutdownFunc func()
	tracerProvider       *ddotel.TracerProvider
}

// New sets up the otel propagator and, on request, a datadog backed tracer provider and the profiler.
func New(serviceName string, enableTrace bool, enableProfiler bool) (*Manager, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	tm := Manager{serviceName: serviceName}

	tm.setupPropagator()

	if enableTrace {
		tm.setupTrace()
	}

	if enableProfiler {
		if err := tm.setupProfiler(); err != nil {
			return nil, errors.Join(err, tm.Shutdown())
		}
	}

	return &tm, nil
}

func (tm *Manager) TracingEnabled() bool {
	return tm.tracerProvider != nil
}

// Shutdown calls cleanup functions registered in the telemetry manager.
// Each registered cleanup will be invoked once and the errors from the calls are joined.
func (tm *Manager) Shutdown() error {
	var err error
	if tm.tracerShutdownFunc != nil {
		err = tm.tracerShutdownFunc()
		tm.tracerShutdownFunc = nil
	}
	if tm.profilerShutdownFunc != nil {
		tm.profilerShutdownFunc()
		tm.profilerShutdownFunc = nil
	}
	return err
}

func (tm *Manager) setupPropagator() {
	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)
}

func (tm *Manager) setupTrace() {
	tm.tracerProvider = ddotel.NewTracerProvider(tracer.WithService(tm.serviceName), tracer.WithRuntimeMetrics())
	tm.tracerShutdownFunc = tm.tracerProvider.Shutdown
	otel.SetTracerProvider(tm.tracerProvider)
}

func (tm *Manager) setupProfiler() error {
	err := profiler.Start(
		profiler.WithService(tm.serviceName),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
		),
	)
	if err != nil {
		return err
	}

	tm.profilerShutdownFunc = profiler.Stop

	return nil
}
