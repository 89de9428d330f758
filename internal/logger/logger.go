// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger extends zap.Logger with launchpad context helpers.
type Logger struct {
	*zap.Logger
	config *Config
}

// New builds a logger that writes human readable output to stdout and JSON
// lines to a rotating file. Extra cores, such as a RingBuffer, are teed in.
func New(cfg *Config, extra ...zapcore.Core) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core
	if cfg.Console {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level))
	}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}
	cores = append(cores, extra...)
	if len(cores) == 0 {
		return nil, fmt.Errorf("logger has no outputs")
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
	}, nil
}

// WithOperation tags entries with an operation name and a fresh correlation id.
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return WithOperation(l.Logger, operation)
}

// WithOperation is the package-level form for plain zap loggers.
func WithOperation(logger *zap.Logger, operation string) *zap.Logger {
	return logger.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

func (l *Logger) WithComponent(component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

// WithPool tags entries with a pool and its token symbol.
func WithPool(logger *zap.Logger, pool solana.PublicKey, symbol string) *zap.Logger {
	return logger.With(
		zap.String("pool", pool.String()),
		zap.String("symbol", symbol),
	)
}

// Sync flushes buffered entries, ignoring the errors stdout returns when it is a terminal.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// TrackPerformance logs the duration of an operation when the returned func is called.
func TrackPerformance(logger *zap.Logger, operation string) (end func()) {
	start := time.Now()
	opLogger := WithOperation(logger, operation)
	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}
