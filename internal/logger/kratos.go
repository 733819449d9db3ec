package logger

import (
	"fmt"

	klog "github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
)

// Kratos adapts z to the kratos log.Logger interface so kratos.App and
// its transports write through the process logger.
func Kratos(z *zap.Logger) klog.Logger {
	return kratosLogger{z: z}
}

type kratosLogger struct {
	z *zap.Logger
}

func (l kratosLogger) Log(level klog.Level, keyvals ...any) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}

	msg := ""
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == klog.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}

	switch level {
	case klog.LevelDebug:
		l.z.Debug(msg, fields...)
	case klog.LevelWarn:
		l.z.Warn(msg, fields...)
	case klog.LevelError, klog.LevelFatal:
		l.z.Error(msg, fields...)
	default:
		l.z.Info(msg, fields...)
	}
	return nil
}
