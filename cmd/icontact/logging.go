package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the CLI logger. Logs go to stderr unless a log file is
// configured, in which case they are rotated by size. The returned func
// flushes and closes the sink.
func newLogger(s *Settings, stderr io.Writer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch s.LogFormat {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", s.LogFormat)
	}

	var sink zapcore.WriteSyncer
	closeSink := func() {}
	if s.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   s.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		sink = zapcore.AddSync(rotator)
		closeSink = func() { _ = rotator.Close() }
	} else {
		sink = zapcore.AddSync(stderr)
	}

	logger := zap.New(zapcore.NewCore(enc, sink, level))
	return logger, func() {
		_ = logger.Sync()
		closeSink()
	}, nil
}
