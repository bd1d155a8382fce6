package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It starts as a no-op so packages can log
// before (or, in tests, without) Init being called.
var Log = zap.NewNop()

// Init builds the global logger. Console output is always on; when logFile
// is non-empty a JSON core is teed into it as well.
func Init(level string, logFile string) error {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), zapLevel),
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zapLevel))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// Sync flushes any buffered log entries.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

// Fatal logs the message and exits the process.
func Fatal(msg string, fields ...zap.Field) { Log.Fatal(msg, fields...) }
