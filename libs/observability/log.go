package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

func LogEvent(ctx context.Context, level string, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.FlowID != "" {
		payload["flow_id"] = info.FlowID
	}
	if info.RunID != "" {
		payload["run_id"] = info.RunID
	}
	if info.TaskID != "" {
		payload["task_id"] = info.TaskID
	}
	if info.ObjectID != "" {
		payload["object_id"] = info.ObjectID
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogLockTransition records a tracked object acquiring a schedule lock.
func LogLockTransition(ctx context.Context, objectID string, slot int, single60Hz bool) {
	LogEvent(ctx, "info", "lock_transition", map[string]any{
		"object_id":   objectID,
		"slot":        slot,
		"single_60hz": single60Hz,
	})
}

// LogDemotion records a tracked object falling back to UNKNOWN.
func LogDemotion(ctx context.Context, objectID string, reason string, confidence int32) {
	LogEvent(ctx, "warn", "demotion", map[string]any{
		"object_id":  objectID,
		"reason":     reason,
		"confidence": confidence,
	})
}

// LogDriftWarning records a refreshed anchor drifting further than
// expected from the previous one.
func LogDriftWarning(ctx context.Context, objectID string, driftTicks uint32) {
	LogEvent(ctx, "warn", "drift_warning", map[string]any{
		"object_id":   objectID,
		"drift_ticks": driftTicks,
	})
}

func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		switch key {
		case "input", "payload":
			out[key] = RedactValue(value)
			continue
		}
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}
