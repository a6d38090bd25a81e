package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	RequestIdKey = "X-Request-Id"
)

var Logger *zap.Logger

func init() {
	// 未调用 SetupLogger 前（如单元测试）使用无输出的 logger
	Logger = zap.NewNop()
}

func SetupLogger() {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 - 15:04:05")
	encoderConfig.TimeKey = "time"

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
	}

	logDir := viper.GetString("log_dir")
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			writer := &lumberjack.Logger{
				Filename:   filepath.Join(logDir, "blackcnote.log"),
				MaxSize:    100,
				MaxBackups: 7,
				MaxAge:     30,
				Compress:   true,
			}
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level))
		}
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func SysLog(s string) {
	Logger.Info(s, zap.String("scope", "system"))
}

func SysError(s string) {
	Logger.Error(s, zap.String("scope", "system"))
}

func FatalLog(v ...any) {
	Logger.Fatal(fmt.Sprint(v...), zap.String("scope", "system"))
}

func LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	Logger.Info(msg, append(fields, RequestField(ctx))...)
}

func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	Logger.Warn(msg, append(fields, RequestField(ctx))...)
}

func LogError(ctx context.Context, msg string, fields ...zap.Field) {
	Logger.Error(msg, append(fields, RequestField(ctx))...)
}

func LogDebug(ctx context.Context, msg string, fields ...zap.Field) {
	Logger.Debug(msg, append(fields, RequestField(ctx))...)
}

// RequestField 取出上下文中的请求 id，没有时跳过
func RequestField(ctx context.Context) zap.Field {
	if ctx == nil {
		return zap.Skip()
	}
	id, _ := ctx.Value(RequestIdKey).(string)
	if id == "" {
		return zap.Skip()
	}
	return zap.String("request_id", id)
}
