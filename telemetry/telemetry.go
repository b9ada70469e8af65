// Package telemetry collects hierarchical timings for a command run.
//
// Collectors and the currently running timer travel through the context, so
// packages can be instrumented without changing their signatures:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer, ctx := telemetry.StartTimer(ctx, "gains")
//	records := load(ctx) // nested StartTimer calls appear under "gains"
//	timer.End()
//
//	collector.Report(os.Stderr, output.NewStyles(os.Stderr))
//
// Without a collector in the context every timer is a no-op.
package telemetry

import (
	"context"
	"io"

	"github.com/robinvdvleuten/taxlots/output"
)

type collectorKey struct{}

type timerKey struct{}

// Collector gathers timers and reports them.
type Collector interface {
	// Start begins a top-level timer.
	Start(name string) Timer

	// Report writes the collected timings. styles may be nil.
	Report(w io.Writer, styles *output.Styles)
}

// Timer tracks a single operation.
type Timer interface {
	End()

	// Child starts a timer nested under this one.
	Child(name string) Timer
}

// WithCollector adds a collector to a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, collector)
}

// FromContext returns the context's collector, or a no-op collector.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey{}).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}

// StartTimer starts a timer nested under the context's running timer, or a
// top-level timer when there is none. The returned context carries the new
// timer so further calls nest beneath it.
func StartTimer(ctx context.Context, name string) (Timer, context.Context) {
	var timer Timer
	if parent, ok := ctx.Value(timerKey{}).(Timer); ok {
		timer = parent.Child(name)
	} else {
		timer = FromContext(ctx).Start(name)
	}
	return timer, context.WithValue(ctx, timerKey{}, timer)
}
