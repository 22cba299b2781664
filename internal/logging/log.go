// Package logging holds the process logger. Batch operations log per-file
// diagnostics through it; with a run log configured, every emission is also
// appended as JSON so multi-file batches stay diagnosable after the fact.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. Init replaces it once flags are parsed.
var Log = zap.New(consoleCore(zap.InfoLevel))

// Init reconfigures the logger: quiet raises the console threshold to
// errors only, and runLogPath adds an append-only JSON core.
func Init(runLogPath string, quiet bool) error {
	level := zap.InfoLevel
	if quiet {
		level = zap.ErrorLevel
	}

	cores := []zapcore.Core{consoleCore(level)}

	if runLogPath != "" {
		f, err := os.OpenFile(runLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.Lock(zapcore.AddSync(f)), zap.InfoLevel))
	}

	Log = zap.New(zapcore.NewTee(cores...))
	return nil
}

func consoleCore(level zapcore.Level) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.Format("2006/01/02 15:04:05.000"))
	}
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
}
