package internal

import (
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// buildEncoderConfig 根据格式创建编码器配置
func buildEncoderConfig(format string, enableColor bool, rootPath string, addSource bool) zapcore.EncoderConfig {
	config := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	if addSource {
		config.CallerKey = "caller"
		config.EncodeCaller = customCallerEncoder(rootPath)
	} else {
		config.CallerKey = zapcore.OmitKey
	}

	// Console 格式特殊处理
	if format == "console" {
		if enableColor {
			config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			config.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}

	return config
}

// customTimeEncoder 自定义时间编码格式
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// customCallerEncoder 调用者编码器；rootPath 为空时显示最后两层路径，
// 否则显示 rootPath 之后的相对路径
func customCallerEncoder(rootPath string) zapcore.CallerEncoder {
	return func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		if !caller.Defined {
			enc.AppendString("undefined")
			return
		}

		if rootPath == "" {
			zapcore.ShortCallerEncoder(caller, enc)
			return
		}

		idx := strings.Index(caller.File, rootPath)
		if idx == -1 {
			enc.AppendString(caller.String())
			return
		}
		rel := strings.TrimLeft(caller.File[idx+len(rootPath):], `/\`)
		enc.AppendString(rel + ":" + caller.String()[strings.LastIndex(caller.String(), ":")+1:])
	}
}

// createEncoder 根据格式创建编码器
func createEncoder(format string, config zapcore.EncoderConfig) zapcore.Encoder {
	if format == "console" {
		return zapcore.NewConsoleEncoder(config)
	}
	return zapcore.NewJSONEncoder(config)
}
