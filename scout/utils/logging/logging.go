package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type traceKey struct{}

// Loggers are no-ops until InitLogger runs, so packages and tests can log freely.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

// ensureLogsDir makes sure the logs folder exists
func ensureLogsDir(dir string) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
}

// InitLogger writes rotated JSON logs under ./logs.
func InitLogger() {
	InitLoggerAt("./logs", os.Getenv("LOG_CONSOLE") == "true")
}

// InitLoggerAt is InitLogger with an explicit directory. When console is set,
// app and error logs are mirrored to stderr for CLI runs.
func InitLoggerAt(dir string, console bool) {
	ensureLogsDir(dir)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	rotate := func(name string, maxSize, maxAge int) zapcore.WriteSyncer {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
		})
	}

	var stderrCore zapcore.Core = zapcore.NewNopCore()
	if console {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stderrCore = zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), zap.InfoLevel)
	}

	// app.log (general logs)
	appCore := zapcore.NewCore(encoder, rotate("app.log", 100, 28), zap.InfoLevel)
	AppLogger = zap.New(zapcore.NewTee(appCore, stderrCore))

	// request.log
	requestCore := zapcore.NewCore(encoder, rotate("request.log", 50, 7), zap.InfoLevel)
	RequestLogger = zap.New(requestCore)

	// timer.log
	timerCore := zapcore.NewCore(encoder, rotate("timer.log", 50, 7), zap.InfoLevel)
	TimerLogger = zap.New(timerCore)

	// error.log
	errorCore := zapcore.NewCore(encoder, rotate("error.log", 100, 30), zap.ErrorLevel)
	ErrorLogger = zap.New(zapcore.NewTee(errorCore, stderrCore))
}

// Sync flushes every logger; call it on shutdown.
func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// WithTraceID tags ctx so LogDuration can correlate timings of one crawl session.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the trace id stored by WithTraceID, or "".
func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID := TraceID(ctx)

	return func() {
		duration := time.Since(start).Milliseconds()
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", duration),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}

		// write ONLY to timer.log
		TimerLogger.Info("Function timed", fields...)
	}
}
