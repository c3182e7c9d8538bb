package pipeline

import (
	"fmt"
	"os"

	"github.com/ceyewan/build-number/clog"
)

const (
	// EnvKey 写入环境变量传播文件的键
	EnvKey = "BUILD_NUMBER"
	// OutputKey 写入步骤输出文件的键
	OutputKey = "build_number"
)

// Outputs 将构建号发布到流水线的环境变量与步骤输出
type Outputs struct {
	envFile    string
	outputFile string
	logger     clog.Logger
}

// NewOutputs 创建输出写入器
func NewOutputs(paths *Paths, logger clog.Logger) *Outputs {
	if logger == nil {
		logger = clog.Namespace("pipeline")
	}
	return &Outputs{
		envFile:    paths.EnvFile,
		outputFile: paths.OutputFile,
		logger:     logger,
	}
}

// Record 追加 BUILD_NUMBER=<value> 与 build_number=<value>
// 未配置的文件会被跳过并记录警告，便于在流水线之外运行
func (o *Outputs) Record(value string) error {
	if err := o.append(o.envFile, EnvKey, value); err != nil {
		return err
	}
	return o.append(o.outputFile, OutputKey, value)
}

func (o *Outputs) append(path, key, value string) error {
	if path == "" {
		o.logger.Warn("output file not configured, skipping", clog.String("key", key))
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
