package clog

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/build-number/clog/internal"
	"go.uber.org/zap"
)

// Logger 定义统一的日志记录接口，封装 zap.Logger 提供类型安全的使用方式
type Logger = internal.Logger

var (
	// defaultLogger 全局默认日志器，使用 atomic.Value 保证并发安全
	defaultLogger atomic.Value

	// defaultLoggerOnce 确保默认日志器只初始化一次
	defaultLoggerOnce sync.Once
)

// traceIDKey 类型安全的上下文键
type traceIDKey struct{}

// SetExitFunc 设置退出函数，用于测试时模拟 os.Exit 行为
func SetExitFunc(fn func(int)) {
	internal.SetExitFunc(fn)
}

// WithTraceID 将 trace_id 注入到 context 中，返回新的 context
// 注入的 trace_id 会被 WithContext 自动提取并添加到日志中
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID 返回 ctx 中的 trace_id，不存在时返回空串
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// WithContext 从 context 中获取 Logger 实例
// 如果 ctx 中包含 trace_id，返回的 Logger 会自动在每条日志中添加 "trace_id" 字段
func WithContext(ctx context.Context) Logger {
	logger := getDefaultLogger()
	if id := TraceID(ctx); id != "" {
		return logger.With(zap.String("trace_id", id))
	}
	return logger
}

// getDefaultLogger 获取全局默认日志器
// 第一次调用时按 ci 默认配置创建，失败时退化为 fallback logger
func getDefaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		logger, err := internal.NewLogger(GetDefaultConfig("ci").toInternal(&Options{}), "")
		if err != nil {
			log.Printf("clog: failed to initialize default logger: %v", err)
			logger = internal.NewFallbackLogger()
		}
		defaultLogger.Store(&loggerHolder{logger})
	})
	return defaultLogger.Load().(*loggerHolder).Logger
}

// loggerHolder 保证 atomic.Value 中存放的具体类型一致
type loggerHolder struct {
	Logger
}

// New 创建独立的 Logger 实例，支持自定义配置
//
// 参数：
//   - ctx: 控制初始化过程的上下文，Logger 不持有此上下文
//   - config: 日志配置，必须通过 Validate() 验证
//   - opts: 功能选项，如 WithNamespace() 设置命名空间
func New(ctx context.Context, config *Config, opts ...Option) (Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := ParseOptions(opts...)
	logger, err := internal.NewLogger(config.toInternal(options), options.Namespace)
	if err != nil {
		// 初始化失败时返回 fallback logger 和原始错误
		return internal.NewFallbackLogger(), err
	}
	return logger, nil
}

// Init 初始化全局默认日志器，通常在 main 函数中调用一次
// 初始化失败时不会替换现有 logger；重复调用会原子替换现有全局 logger
func Init(ctx context.Context, config *Config, opts ...Option) error {
	logger, err := New(ctx, config, opts...)
	if err != nil {
		return err
	}
	defaultLoggerOnce.Do(func() {})
	defaultLogger.Store(&loggerHolder{logger})
	return nil
}

// Sync 刷新全局日志器的缓冲
func Sync() error {
	return getDefaultLogger().Sync()
}

// Namespace 创建带有层次化命名空间的 Logger 实例
//
// 示例：
//
//	storeLogger := clog.Namespace("refstore")
//	ghLogger := storeLogger.Namespace("github") // "refstore.github"
func Namespace(name string) Logger {
	return getDefaultLogger().Namespace(name)
}

// Debug 记录 Debug 级别的日志
func Debug(msg string, fields ...Field) {
	getDefaultLogger().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info 记录 Info 级别的日志
func Info(msg string, fields ...Field) {
	getDefaultLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn 记录 Warn 级别的日志
func Warn(msg string, fields ...Field) {
	getDefaultLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error 记录 Error 级别的日志
func Error(msg string, fields ...Field) {
	getDefaultLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal 记录 Fatal 级别的日志并退出程序
func Fatal(msg string, fields ...Field) {
	getDefaultLogger().WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}
