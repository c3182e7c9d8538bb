package clog

import (
	"go.uber.org/zap"

	"github.com/ceyewan/build-number/clog/internal"
)

// Field 是 zap.Field 的别名
type Field = zap.Field

// 直接导出 zap 的字段构造函数
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Duration = zap.Duration
	Any      = zap.Any
	Strings  = zap.Strings
	Ints     = zap.Ints
	Err      = zap.Error
	Stringer = zap.Stringer
)

// Ref 记录一个 ref 名称
func Ref(name string) Field {
	return zap.String("ref", name)
}

// Status 记录 Ref Store 返回的状态码
func Status(code int) Field {
	return zap.Int("status", code)
}

// BuildNumber 记录构建号
func BuildNumber(n int) Field {
	return zap.Int("build_number", n)
}

// FormatAnnotation 生成一行 CI 工作流命令，例如 "::error::message\n"
func FormatAnnotation(command, message string) string {
	return internal.FormatAnnotation(command, message)
}
