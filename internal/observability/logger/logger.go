package logger

import (
	"context"
	"fmt"
	"strings"

	"boardkit-api/internal/observability/requestid"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	loggerContextKey    contextKey = "logger"
	boardIDContextKey   contextKey = "board_id"
	userIDContextKey    contextKey = "user_id"
	rootErrorContextKey contextKey = "root_err"
)

type rootErrorContainer struct {
	err error
}

// Logger wraps zap.Logger and stamps every entry with service, request
// and caller identity fields.
type Logger struct {
	zap         *zap.Logger
	serviceName string
}

// Field is a structured log field.
type Field = zapcore.Field

// New builds a JSON logger. level is one of debug, info, warn, error.
func New(serviceName string, level string) (*Logger, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("serviceName is required")
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return FromZap(serviceName, z), nil
}

// FromZap wraps an existing zap logger. Tests use it with zaptest/observer.
func FromZap(serviceName string, z *zap.Logger) *Logger {
	return &Logger{
		zap:         z.With(zap.String("service", serviceName)),
		serviceName: serviceName,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return FromZap("nop", zap.NewNop())
}

// WithContext returns a logger with the context identity fields bound.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &Logger{
		zap:         l.zap.With(fields...),
		serviceName: l.serviceName,
	}
}

// Module names the component emitting the entry.
func Module(name string) Field {
	return zap.String("module", name)
}

// Action names the operation being performed.
func Action(name string) Field {
	return zap.String("action", name)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields...)
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields ...Field) {
	sanitized := sanitizeFields(fields)

	// module and action degrade to "unknown" instead of failing the call
	hasModule, hasAction := false, false
	for _, f := range sanitized {
		switch f.Key {
		case "module":
			hasModule = true
		case "action":
			hasAction = true
		}
	}
	if !hasModule {
		sanitized = append(sanitized, zap.String("module", "unknown"))
	}
	if !hasAction {
		sanitized = append(sanitized, zap.String("action", "unknown"))
	}

	all := append(contextFields(ctx), sanitized...)
	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(all...)
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func contextFields(ctx context.Context) []Field {
	fields := make([]Field, 0, 3)
	if id := requestid.GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetBoardIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("board_id", id))
	}
	if id := GetUserIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return fields
}

var forbiddenKeys = map[string]bool{
	"authorization": true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"api_key":       true,
	"database_url":  true,
	"jwt":           true,
	"bearer":        true,
	"credential":    true,
	// PII
	"email":      true,
	"invitee":    true,
	"full_name":  true,
	"name":       true,
	"phone":      true,
	"address":    true,
}

// sanitizeFields replaces values of secret or PII keys with [REDACTED].
func sanitizeFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, field := range fields {
		if forbiddenKeys[strings.ToLower(field.Key)] {
			out = append(out, zap.String(field.Key, "[REDACTED]"))
			continue
		}
		out = append(out, field)
	}
	return out
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func GetRequestIDFromContext(ctx context.Context) string {
	return requestid.GetRequestID(ctx)
}

func GetBoardIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(boardIDContextKey).(string)
	return id
}

func GetUserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}

func SetRequestIDInContext(ctx context.Context, requestID string) context.Context {
	return requestid.SetRequestID(ctx, requestID)
}

func SetBoardIDInContext(ctx context.Context, boardID string) context.Context {
	return context.WithValue(ctx, boardIDContextKey, boardID)
}

func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetLogger returns the request logger or a fallback when none was stored.
func GetLogger(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return l
	}
	l, err := New("boardkit-api", "info")
	if err != nil {
		return Nop()
	}
	return l
}

func SetLoggerInContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, l)
}

// InitRootErrorContext installs a holder that handlers fill with SetRootError
// so the request logger can report the underlying cause of a 5xx.
func InitRootErrorContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, rootErrorContextKey, &rootErrorContainer{})
}

func SetRootError(ctx context.Context, err error) {
	if c, ok := ctx.Value(rootErrorContextKey).(*rootErrorContainer); ok {
		c.err = err
	}
}

func GetRootError(ctx context.Context) error {
	if c, ok := ctx.Value(rootErrorContextKey).(*rootErrorContainer); ok {
		return c.err
	}
	return nil
}
