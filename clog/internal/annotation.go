package internal

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

// annotationCore 将 warn/error 级别的日志镜像为 CI 工作流注解命令，
// 例如 "::warning::message" 与 "::error::message"
type annotationCore struct {
	zapcore.LevelEnabler
	out    zapcore.WriteSyncer
	fields []zapcore.Field
}

func newAnnotationCore(out zapcore.WriteSyncer, enab zapcore.LevelEnabler) zapcore.Core {
	return &annotationCore{LevelEnabler: enab, out: out}
}

func (c *annotationCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &annotationCore{LevelEnabler: c.LevelEnabler, out: c.out, fields: merged}
}

func (c *annotationCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *annotationCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	line := FormatAnnotation(commandFor(ent.Level), annotationMessage(ent.Message, enc.Fields))
	if _, err := c.out.Write([]byte(line)); err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		return c.out.Sync()
	}
	return nil
}

func (c *annotationCore) Sync() error {
	return c.out.Sync()
}

// FormatAnnotation 生成一行工作流命令，消息中的 %、\r、\n 按命令格式转义
func FormatAnnotation(command, message string) string {
	return fmt.Sprintf("::%s::%s\n", command, escapeData(message))
}

func commandFor(level zapcore.Level) string {
	if level >= zapcore.ErrorLevel {
		return "error"
	}
	return "warning"
}

// annotationMessage 把字段以 key=value 形式附加在消息之后，namespace 不输出
func annotationMessage(msg string, fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "namespace" || k == "trace_id" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return msg
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for i, k := range keys {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	return b.String()
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}
