package internal

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ExitFunc allows mocking os.Exit in tests
var ExitFunc = os.Exit

// SetExitFunc sets the exit function for testing
func SetExitFunc(fn func(int)) {
	ExitFunc = fn
}

// Logger 定义日志接口
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)

	With(fields ...zap.Field) Logger
	WithOptions(opts ...zap.Option) Logger
	Namespace(name string) Logger
	Sync() error
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config 内部配置结构，由 clog.Config 转换而来
type Config struct {
	Level       string
	Format      string
	Output      string
	AddSource   bool
	EnableColor bool
	RootPath    string
	Rotation    *RotationConfig

	// Annotations 为 true 时，warn 及以上级别的日志同时以 CI 注解命令输出
	Annotations bool
	// AnnotationWriter 注解输出目标，为空时使用 stdout
	AnnotationWriter io.Writer
}

// zapLogger 封装 zap.Logger
type zapLogger struct {
	*zap.Logger
	namespace string
}

// WithNamespaceField 创建命名空间字段（用于内部实现）
func WithNamespaceField(name string) zap.Field {
	return zap.String("namespace", name)
}

// NewLogger 创建新的 logger
func NewLogger(cfg *Config, namespace string) (Logger, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	level := parseLevel(cfg.Level)
	encoder := createEncoder(cfg.Format, buildEncoderConfig(cfg.Format, cfg.EnableColor, cfg.RootPath, cfg.AddSource))

	sink, err := buildWriteSyncer(cfg.Output, cfg.Rotation)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, level)
	if cfg.Annotations {
		w := cfg.AnnotationWriter
		if w == nil {
			w = os.Stdout
		}
		core = zapcore.NewTee(core, newAnnotationCore(zapcore.AddSync(w), maxLevel(level, zapcore.WarnLevel)))
	}

	opts := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}

	return &zapLogger{
		Logger:    zap.New(core, opts...),
		namespace: namespace,
	}, nil
}

// NewFallbackLogger 创建备用 logger
func NewFallbackLogger() Logger {
	logger, _ := zap.NewProduction()
	return &zapLogger{Logger: logger}
}

// With 添加字段
func (l *zapLogger) With(fields ...zap.Field) Logger {
	// 过滤掉 namespace 字段，避免重复
	var filteredFields []zap.Field
	for _, field := range fields {
		if field.Key != "namespace" {
			filteredFields = append(filteredFields, field)
		}
	}

	return &zapLogger{
		Logger:    l.Logger.With(filteredFields...),
		namespace: l.namespace,
	}
}

// WithOptions 添加选项
func (l *zapLogger) WithOptions(opts ...zap.Option) Logger {
	return &zapLogger{
		Logger:    l.Logger.WithOptions(opts...),
		namespace: l.namespace,
	}
}

// withNamespace 在字段首位补上 namespace
func (l *zapLogger) withNamespace(fields []zap.Field) []zap.Field {
	if l.namespace == "" {
		return fields
	}
	allFields := make([]zap.Field, len(fields)+1)
	allFields[0] = WithNamespaceField(l.namespace)
	copy(allFields[1:], fields)
	return allFields
}

// Debug 记录 Debug 级别的日志
func (l *zapLogger) Debug(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, l.withNamespace(fields)...)
}

// Info 记录 Info 级别的日志
func (l *zapLogger) Info(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Info(msg, l.withNamespace(fields)...)
}

// Warn 记录 Warn 级别的日志
func (l *zapLogger) Warn(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, l.withNamespace(fields)...)
}

// Error 记录 Error 级别的日志
func (l *zapLogger) Error(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1)).Error(msg, l.withNamespace(fields)...)
}

// Fatal 记录 Fatal 级别的日志并退出程序，退出由 ExitFunc 统一处理
func (l *zapLogger) Fatal(msg string, fields ...zap.Field) {
	l.Logger.WithOptions(zap.AddCallerSkip(1), zap.WithFatalHook(exitHook{})).Fatal(msg, l.withNamespace(fields)...)
}

// exitHook 在 Fatal 日志写出后调用 ExitFunc
type exitHook struct{}

func (exitHook) OnWrite(ce *zapcore.CheckedEntry, _ []zapcore.Field) {
	ExitFunc(1)
}

// Namespace 创建子命名空间的 Logger 实例，支持链式调用
func (l *zapLogger) Namespace(name string) Logger {
	fullNamespace := name
	if l.namespace != "" {
		fullNamespace = l.namespace + "." + name
	}

	return &zapLogger{
		Logger:    l.Logger,
		namespace: fullNamespace,
	}
}

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		Level:     "info",
		Format:    "json",
		Output:    "stdout",
		AddSource: true,
	}
}

// parseLevel 解析日志级别
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func maxLevel(a, b zapcore.Level) zapcore.Level {
	if a > b {
		return a
	}
	return b
}
