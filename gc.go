package automation

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/world-engine/automation/engine"
)

// RequestGC arms a garbage collection that runs once the current test run ends.
func (rt *Runtime) RequestGC() {
	rt.gcRequested = true
}

func (rt *Runtime) GCRequested() bool {
	return rt.gcRequested
}

// HandleTestRunEnded runs the pending garbage collection, if any.
func (rt *Runtime) HandleTestRunEnded() {
	if !rt.gcRequested {
		return
	}
	rt.gcRequested = false
	rt.collectGarbage(false)
}

func (rt *Runtime) collectGarbage(fullPurge bool) int {
	_, span := rt.tracer.Start(context.Background(), "automation.gc",
		trace.WithAttributes(attribute.Bool("full_purge", fullPurge)))
	defer span.End()

	collected := rt.Engine.CollectGarbage(engine.KeepFlags, fullPurge)
	span.SetAttributes(attribute.Int("collected", collected))
	log.Debug().Int("collected", collected).Bool("full_purge", fullPurge).Msg("Automation garbage collection")
	return collected
}

func worldTypeAttr(t engine.WorldType) attribute.KeyValue {
	return attribute.String("world_type", t.String())
}

func packageAttr(pkg string) attribute.KeyValue {
	return attribute.String("package", pkg)
}

func recordError(span trace.Span, err error) {
	span.SetStatus(codes.Error, eris.ToString(err, true))
	span.RecordError(err)
}
