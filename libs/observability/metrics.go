package observability

import (
	"context"
	"time"
)

// RecordLockTransition logs a structured metric line every time a tracked
// object locks onto the pulse schedule.
func RecordLockTransition(ctx context.Context, slot int, single60Hz bool) {
	LogEvent(ctx, "info", "metric", map[string]any{
		"name":        "lock_transition",
		"slot":        slot,
		"single_60hz": single60Hz,
	})
}

// RecordDemotion logs a structured metric line every time a tracked object
// is demoted back to UNKNOWN.
func RecordDemotion(ctx context.Context, confidence int32) {
	LogEvent(ctx, "info", "metric", map[string]any{
		"name":       "demotion",
		"confidence": confidence,
	})
}

// RecordDriftWarning logs a structured metric line when a refreshed anchor
// drifts further than expected from the previous one.
func RecordDriftWarning(ctx context.Context, driftTicks uint32) {
	LogEvent(ctx, "info", "metric", map[string]any{
		"name":        "drift_warning",
		"drift_ticks": driftTicks,
	})
}

// RecordDiscoveryFailure logs a structured metric line for a throttled
// phase-discovery failure report.
func RecordDiscoveryFailure(ctx context.Context, attempts int) {
	LogEvent(ctx, "info", "metric", map[string]any{
		"name":     "discovery_failure",
		"attempts": attempts,
	})
}

// RecordEmission logs a structured metric line for a dispatched light
// record.
func RecordEmission(ctx context.Context, kind string, lighthouse string, dispatch time.Duration) {
	LogEvent(ctx, "info", "metric", map[string]any{
		"name":       "emission",
		"kind":       kind,
		"lighthouse": lighthouse,
		"latency_ms": dispatch.Milliseconds(),
	})
}
