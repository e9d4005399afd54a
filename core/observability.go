package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// metricTagKeys are the context fields promoted into metric tags; everything
// else stays log-only to keep tag cardinality bounded.
var metricTagKeys = []string{"account_id", "chat_id", "message_id", "media_type"}

// observeOperation emits the per-operation log line plus the counter and
// duration histogram, tagged with operation, status, and any traceable ids
// present in fields.
func (g *Gateway) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if g == nil {
		return
	}
	operation = metricOperationName(operation)
	status := "success"
	if err != nil {
		status = "failure"
	}
	elapsed := time.Since(startedAt)

	logFields := cloneFields(fields)
	logFields["event_type"] = operation
	logFields["status"] = status
	logFields["duration_ms"] = elapsed.Milliseconds()
	if err != nil {
		logFields["error"] = err.Error()
	}

	tags := map[string]string{"operation": operation, "status": status}
	for _, key := range metricTagKeys {
		value := strings.TrimSpace(fmt.Sprint(logFields[key]))
		if value != "" && value != "<nil>" {
			tags[key] = value
		}
	}
	g.recordCounter(ctx, "gateway."+operation+".total", 1, tags)
	g.recordHistogram(ctx, "gateway."+operation+".duration_ms", float64(elapsed.Milliseconds()), tags)

	if err != nil {
		g.logError(ctx, operation+" failed", logFields)
		return
	}
	g.logInfo(ctx, operation+" succeeded", logFields)
}

func (g *Gateway) logInfo(ctx context.Context, message string, fields map[string]any) {
	if logger := g.scopedLogger(ctx, fields); logger != nil {
		logger.Info(message, flattenFields(fields)...)
	}
}

func (g *Gateway) logError(ctx context.Context, message string, fields map[string]any) {
	if logger := g.scopedLogger(ctx, fields); logger != nil {
		logger.Error(message, flattenFields(fields)...)
	}
}

// scopedLogger binds the context and, when the sink supports it, the
// structured fields.
func (g *Gateway) scopedLogger(ctx context.Context, fields map[string]any) Logger {
	if g == nil || g.logger == nil {
		return nil
	}
	logger := g.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	return logger
}

func (g *Gateway) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if g == nil || g.metricsRecorder == nil {
		return
	}
	g.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (g *Gateway) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if g == nil || g.metricsRecorder == nil {
		return
	}
	g.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

// flattenFields turns a field map into the key/value argument list glog
// expects, sorted for stable log lines.
func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(fields))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func metricOperationName(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	if operation == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return replacer.Replace(operation)
}
