package clog

import (
	"fmt"

	"github.com/ceyewan/build-number/clog/internal"
)

// Config 是 clog 组件的配置结构体
type Config struct {
	// Level 日志级别: "debug", "info", "warn", "error", "fatal"
	Level string `json:"level" yaml:"level"`

	// Format 输出格式: "json" 或 "console"
	Format string `json:"format" yaml:"format"`

	// Output 输出目标: "stdout", "stderr", 或文件路径
	Output string `json:"output" yaml:"output"`

	// AddSource 控制日志是否包含源码文件名和行号
	AddSource bool `json:"addSource" yaml:"addSource"`

	// EnableColor 是否启用颜色（仅 console 格式）
	EnableColor bool `json:"enableColor" yaml:"enableColor"`

	// RootPath 项目根目录，用于控制文件路径显示
	RootPath string `json:"rootPath,omitempty" yaml:"rootPath,omitempty"`

	// Annotations 将 warn/error 日志同时输出为 CI 注解（::warning:: / ::error::）
	Annotations bool `json:"annotations" yaml:"annotations"`

	// Rotation 日志轮转配置（仅文件输出）
	Rotation *RotationConfig `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// RotationConfig 定义日志文件轮转设置
type RotationConfig struct {
	MaxSize    int  `json:"maxSize"`    // 单个日志文件最大尺寸(MB)
	MaxBackups int  `json:"maxBackups"` // 最多保留文件个数
	MaxAge     int  `json:"maxAge"`     // 日志保留天数
	Compress   bool `json:"compress"`   // 是否压缩轮转文件
}

// GetDefaultConfig 返回默认的日志配置
// ci：console 格式，info 级别，无颜色，开启注解
// development：console 格式，debug 级别，带颜色
// production：json 格式，info 级别
func GetDefaultConfig(env string) *Config {
	switch env {
	case "ci":
		return &Config{
			Level:       "info",
			Format:      "console",
			Output:      "stdout",
			AddSource:   false,
			EnableColor: false,
			Annotations: true,
		}
	case "development":
		return &Config{
			Level:       "debug",
			Format:      "console",
			Output:      "stdout",
			AddSource:   true,
			EnableColor: true,
		}
	case "production":
		return &Config{
			Level:     "info",
			Format:    "json",
			Output:    "stdout",
			AddSource: true,
		}
	default:
		return &Config{
			Level:       "info",
			Format:      "console",
			Output:      "stdout",
			AddSource:   true,
			EnableColor: true,
		}
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	if c.Output == "" {
		return fmt.Errorf("log output cannot be empty")
	}

	if c.Rotation != nil {
		if c.Output == "stdout" || c.Output == "stderr" {
			return fmt.Errorf("rotation requires a file output, got %s", c.Output)
		}
		if c.Rotation.MaxSize < 0 {
			return fmt.Errorf("rotation maxSize cannot be negative")
		}
		if c.Rotation.MaxBackups < 0 {
			return fmt.Errorf("rotation maxBackups cannot be negative")
		}
		if c.Rotation.MaxAge < 0 {
			return fmt.Errorf("rotation maxAge cannot be negative")
		}
	}

	return nil
}

// toInternal 转换为内部配置
func (c *Config) toInternal(options *Options) *internal.Config {
	cfg := &internal.Config{
		Level:            c.Level,
		Format:           c.Format,
		Output:           c.Output,
		AddSource:        c.AddSource,
		EnableColor:      c.EnableColor,
		RootPath:         c.RootPath,
		Annotations:      c.Annotations,
		AnnotationWriter: options.AnnotationWriter,
	}
	if c.Rotation != nil {
		cfg.Rotation = &internal.RotationConfig{
			MaxSize:    c.Rotation.MaxSize,
			MaxBackups: c.Rotation.MaxBackups,
			MaxAge:     c.Rotation.MaxAge,
			Compress:   c.Rotation.Compress,
		}
	}
	return cfg
}
