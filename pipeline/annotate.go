package pipeline

import (
	"io"

	"github.com/ceyewan/build-number/clog"
)

// Fail 输出一行错误注解，进程退出码由调用方决定
func Fail(w io.Writer, err error) {
	_, _ = io.WriteString(w, clog.FormatAnnotation("error", err.Error()))
}
