package buildnum

import (
	"github.com/ceyewan/build-number/clog"
)

// Cache 本地缓存的构建号，供同一次流水线运行的后续阶段复用
type Cache interface {
	// Load 返回缓存值；ok 为 false 表示缓存不存在
	Load() (value string, ok bool, err error)
	// Store 保存新分配的构建号
	Store(n int) error
}

// Recorder 将构建号发布给流水线
type Recorder interface {
	Record(value string) error
}

// Options 定义分配器的可选依赖
type Options struct {
	logger   clog.Logger
	cache    Cache
	recorder Recorder
}

// Option 定义配置选项的函数类型
type Option func(*Options)

// WithLogger 注入日志依赖
func WithLogger(logger clog.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithCache 注入本地缓存
func WithCache(cache Cache) Option {
	return func(opts *Options) {
		opts.cache = cache
	}
}

// WithRecorder 注入流水线输出
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.recorder = recorder
	}
}
