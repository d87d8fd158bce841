package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeVerify      EventType = "verify"
	EventTypeTask        EventType = "task"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type taskIDKey struct{}

// WithTaskID tags ctx with the id of the task being processed.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskIDFrom returns the task id stored in ctx, if any.
func TaskIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	// LLMLogPath receives every model exchange as JSONL. Empty disables it.
	LLMLogPath string
	MaxSize    int64
}

// Logger handles structured logging.
type Logger struct {
	zap        *zap.Logger
	mu         sync.Mutex
	llmLogPath string
	maxSize    int64
}

func NewLogger(cfg LogConfig) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = lvl
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Sampling = nil
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
	}

	z, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024 // 10MB
	}

	return &Logger{
		zap:        z,
		llmLogPath: cfg.LLMLogPath,
		maxSize:    maxSize,
	}, nil
}

// NewLoggerFromZap wraps an existing zap logger, mainly for tests.
func NewLoggerFromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z, maxSize: 10 * 1024 * 1024}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return NewLoggerFromZap(zap.NewNop())
}

// Zap exposes the underlying logger for components that log directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Log emits a structured event. The task id is taken from ctx when the
// event does not carry one.
func (l *Logger) Log(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.TaskID == "" {
		evt.TaskID = TaskIDFrom(ctx)
	}

	fields := []zap.Field{zap.String("type", string(evt.Type))}
	if evt.TaskID != "" {
		fields = append(fields, zap.String("task_id", evt.TaskID))
	}
	fields = append(fields, zap.Any("data", evt.Data))

	if evt.Type == EventTypeLLM {
		l.zap.Debug("event", fields...)
		l.writeToFile(evt)
		return
	}
	l.zap.Info("event", fields...)
}

func (l *Logger) writeToFile(evt Event) {
	if l.llmLogPath == "" {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		l.zap.Warn("failed to marshal llm event", zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		l.zap.Warn("failed to create log directory", zap.Error(err))
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.zap.Warn("failed to open llm log file", zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.zap.Warn("failed to write llm log file", zap.Error(err))
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(ctx context.Context, task string, steps []string, tools []string) {
	l.Log(ctx, Event{
		Type: EventTypePlan,
		Data: map[string]any{
			"task":         task,
			"steps":        steps,
			"tools_needed": tools,
		},
	})
}

func (l *Logger) LogStep(ctx context.Context, index int, tool, status string, duration time.Duration) {
	l.Log(ctx, Event{
		Type: EventTypeStep,
		Data: map[string]any{
			"index":       index,
			"tool":        tool,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

func (l *Logger) LogToolCall(ctx context.Context, tool, arg string) {
	l.Log(ctx, Event{
		Type: EventTypeToolCall,
		Data: map[string]string{
			"tool": tool,
			"arg":  arg,
		},
	})
}

func (l *Logger) LogToolResult(ctx context.Context, tool, output string, err error) {
	data := map[string]string{"tool": tool, "output": output}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(ctx, Event{Type: EventTypeToolResult, Data: data})
}

func (l *Logger) LogPolicyCheck(ctx context.Context, tool, effect, reason string) {
	l.Log(ctx, Event{
		Type: EventTypePolicyCheck,
		Data: map[string]string{
			"tool":   tool,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogVerify(ctx context.Context, result string, sources []string) {
	l.Log(ctx, Event{
		Type: EventTypeVerify,
		Data: map[string]any{
			"result":  result,
			"sources": sources,
		},
	})
}

func (l *Logger) LogTask(ctx context.Context, task, outcome string, duration time.Duration, err error) {
	data := map[string]any{
		"task":        task,
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(ctx, Event{Type: EventTypeTask, Data: data})
}

func (l *Logger) LogLLM(ctx context.Context, schema, prompt, response string) {
	l.Log(ctx, Event{
		Type: EventTypeLLM,
		Data: map[string]any{
			"schema":   schema,
			"prompt":   prompt,
			"response": response,
		},
	})
}
