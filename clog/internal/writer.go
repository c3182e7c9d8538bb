package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// buildWriteSyncer 根据输出目标创建写入器：stdout、stderr 或文件路径
func buildWriteSyncer(output string, rotation *RotationConfig) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	default:
		return buildFileWriteSyncer(output, rotation)
	}
}

// buildFileWriteSyncer 创建文件写入器
func buildFileWriteSyncer(filename string, rotation *RotationConfig) (zapcore.WriteSyncer, error) {
	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create log directory failed: %w", err)
	}

	// 如果没有轮转配置，使用普通文件
	if rotation == nil {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		return zapcore.AddSync(file), nil
	}

	// 使用 lumberjack 进行日志轮转
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    rotation.MaxSize,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAge,
		Compress:   rotation.Compress,
		LocalTime:  true,
	}), nil
}
