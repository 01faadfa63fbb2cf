package logger_test

import (
	"context"
	"errors"
	"testing"

	"boardkit-api/internal/observability/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logger.FromZap("test-service", zap.New(core)), logs
}

func fieldMap(entry observer.LoggedEntry) map[string]interface{} {
	return entry.ContextMap()
}

func TestLogger_RequiresServiceName(t *testing.T) {
	_, err := logger.New("", "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serviceName is required")
}

func TestLogger_New(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		t.Run(level, func(t *testing.T) {
			log, err := logger.New("test-service", level)
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	ctx := context.Background()
	ctx = logger.SetRequestIDInContext(ctx, "req-1")
	ctx = logger.SetBoardIDInContext(ctx, "board-1")
	ctx = logger.SetUserIDInContext(ctx, "user-1")

	log.Info(ctx, "access granted", logger.Module("access"), logger.Action("check_access"))

	require.Equal(t, 1, logs.Len())
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "test-service", fields["service"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "board-1", fields["board_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "access", fields["module"])
	assert.Equal(t, "check_access", fields["action"])
}

func TestLogger_DefaultsModuleAndAction(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	log.Info(context.Background(), "bare message")

	require.Equal(t, 1, logs.Len())
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "unknown", fields["module"])
	assert.Equal(t, "unknown", fields["action"])
}

func TestLogger_RedactsSecretsAndPII(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	log.Info(context.Background(), "invite",
		logger.Module("invitation"),
		logger.Action("invite_member"),
		zap.String("email", "u2@example.com"),
		zap.String("token", "abc"),
		zap.String("Authorization", "Bearer xyz"),
		zap.String("role", "editor"),
	)

	require.Equal(t, 1, logs.Len())
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "[REDACTED]", fields["email"])
	assert.Equal(t, "[REDACTED]", fields["token"])
	assert.Equal(t, "[REDACTED]", fields["Authorization"])
	assert.Equal(t, "editor", fields["role"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	log, logs := newObserved(zapcore.WarnLevel)
	ctx := context.Background()

	log.Debug(ctx, "debug")
	log.Info(ctx, "info")
	log.Warn(ctx, "warn")
	log.Error(ctx, "error", zap.Error(errors.New("boom")))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "warn", logs.All()[0].Message)
	assert.Equal(t, "error", logs.All()[1].Message)
}

func TestLogger_WithContext(t *testing.T) {
	log, _ := newObserved(zapcore.InfoLevel)

	assert.Same(t, log, log.WithContext(context.Background()))

	ctx := logger.SetUserIDInContext(context.Background(), "user-1")
	assert.NotSame(t, log, log.WithContext(ctx))
}

func TestLogger_GetLogger(t *testing.T) {
	log, _ := newObserved(zapcore.InfoLevel)

	ctx := logger.SetLoggerInContext(context.Background(), log)
	assert.Same(t, log, logger.GetLogger(ctx))

	fallback := logger.GetLogger(context.Background())
	require.NotNil(t, fallback)
	fallback.Info(context.Background(), "fallback works")
}

func TestLogger_RootError(t *testing.T) {
	ctx := logger.InitRootErrorContext(context.Background())
	assert.Nil(t, logger.GetRootError(ctx))

	cause := errors.New("db down")
	logger.SetRootError(ctx, cause)
	assert.Equal(t, cause, logger.GetRootError(ctx))

	// no container: setter is a no-op
	logger.SetRootError(context.Background(), cause)
	assert.Nil(t, logger.GetRootError(context.Background()))
}
