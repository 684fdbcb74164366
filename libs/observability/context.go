package observability

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	taskIDKey   contextKey = "task_id"
	objectIDKey contextKey = "object_id"
	flowIDKey   contextKey = "flow_id"
)

// RunInfo carries trace identifiers through a request context.
// FlowID spans one tracked object's full ingest→emit chain. RunID is
// per-process run. TaskID is per background task (e.g. a diagnostics
// migration job).
type RunInfo struct {
	RunID    string
	TaskID   string
	ObjectID string
	FlowID   string
}

func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	if info.RunID != "" {
		ctx = context.WithValue(ctx, runIDKey, info.RunID)
	}
	if info.TaskID != "" {
		ctx = context.WithValue(ctx, taskIDKey, info.TaskID)
	}
	if info.ObjectID != "" {
		ctx = context.WithValue(ctx, objectIDKey, info.ObjectID)
	}
	if info.FlowID != "" {
		ctx = context.WithValue(ctx, flowIDKey, info.FlowID)
	}
	return ctx
}

func RunInfoFromContext(ctx context.Context) RunInfo {
	info := RunInfo{}
	if value := ctx.Value(runIDKey); value != nil {
		if runID, ok := value.(string); ok {
			info.RunID = runID
		}
	}
	if value := ctx.Value(taskIDKey); value != nil {
		if taskID, ok := value.(string); ok {
			info.TaskID = taskID
		}
	}
	if value := ctx.Value(objectIDKey); value != nil {
		if objectID, ok := value.(string); ok {
			info.ObjectID = objectID
		}
	}
	if value := ctx.Value(flowIDKey); value != nil {
		if flowID, ok := value.(string); ok {
			info.FlowID = flowID
		}
	}
	return info
}

// WithFlowID attaches a flow_id to the context. A flow_id traces one
// tracked object's lifecycle: first event seen → lock → demote/release.
func WithFlowID(ctx context.Context, flowID string) context.Context {
	if flowID == "" {
		return ctx
	}
	return context.WithValue(ctx, flowIDKey, flowID)
}

// FlowIDFromContext retrieves the flow_id set by WithFlowID.
func FlowIDFromContext(ctx context.Context) string {
	if v := ctx.Value(flowIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
