// Package obs carries per-component, per-artifact context through the
// inspection pipeline using OpenTelemetry baggage, the way
// java/jar/jar.go's Parse tags its context with a component and jar name
// before doing anything else.
//
// The teacher file uses the now-deprecated otel/label package
// (baggage.ContextWithValues(ctx, label.String(...))); a from-scratch
// module has no reason to start on a deprecated API, so this ports the
// same idiom onto the current baggage.Member/baggage.New/
// ContextWithBaggage surface. No OTLP exporter or SDK is wired — there's
// no telemetry backend in scope for a static CLI analyzer (see
// SPEC_FULL.md's ambient stack note) — only the baggage API used to
// thread context through nested calls for logging.
package obs

import (
	"context"

	"go.opentelemetry.io/otel/baggage"

	"github.com/quay/zlog"
)

// WithContext attaches component/artifact tags to ctx as baggage, so any
// nested call can read them back with zlog.Debug(ctx) fields or via
// FromContext. Malformed values (baggage keys/values have a restricted
// character set) are logged and otherwise ignored — tagging context for
// observability must never be allowed to fail a scan. Any existing
// "run" member already on ctx's baggage is preserved.
func WithContext(ctx context.Context, component, artifact string) context.Context {
	members := []baggage.Member{}
	if run := baggage.FromContext(ctx).Member("run"); run.Key() != "" {
		members = append(members, run)
	}
	if m, err := baggage.NewMember("component", component); err == nil {
		members = append(members, m)
	} else {
		zlog.Debug(ctx).Err(err).Msg("obs: invalid component baggage member")
	}
	if m, err := baggage.NewMember("artifact", artifact); err == nil {
		members = append(members, m)
	} else {
		zlog.Debug(ctx).Err(err).Msg("obs: invalid artifact baggage member")
	}
	bag, err := baggage.New(members...)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("obs: unable to construct baggage")
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

// WithRun attaches a scan run ID to ctx as baggage, to be preserved and
// surfaced by every subsequent WithContext call for the duration of a
// single walker.Scan.
func WithRun(ctx context.Context, runID string) context.Context {
	m, err := baggage.NewMember("run", runID)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("obs: invalid run baggage member")
		return ctx
	}
	bag, err := baggage.New(m)
	if err != nil {
		zlog.Debug(ctx).Err(err).Msg("obs: unable to construct run baggage")
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

// Artifact reads back the "artifact" baggage member set by WithContext,
// or "" if none is present.
func Artifact(ctx context.Context) string {
	return baggage.FromContext(ctx).Member("artifact").Value()
}

// Run reads back the "run" baggage member set by WithRun, or "" if none
// is present.
func Run(ctx context.Context) string {
	return baggage.FromContext(ctx).Member("run").Value()
}
