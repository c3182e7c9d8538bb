package pipeline

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ceyewan/build-number/clog"
)

// FileCache 读写本地构建号文件
type FileCache struct {
	cacheFile  string
	resultFile string
	logger     clog.Logger
}

// NewFileCache 创建文件缓存
func NewFileCache(paths *Paths, logger clog.Logger) *FileCache {
	if logger == nil {
		logger = clog.Namespace("pipeline")
	}
	return &FileCache{
		cacheFile:  paths.CacheFile,
		resultFile: paths.ResultFile,
		logger:     logger,
	}
}

// Load 读取缓存文件的第一行
// 文件存在即视为命中，内容不做校验
func (c *FileCache) Load() (string, bool, error) {
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read cached build number %s: %w", c.cacheFile, err)
	}

	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	return string(bytes.TrimSpace(line)), true, nil
}

// Store 写出新的构建号
// 结果文件必须写成功；缓存文件在其目录可创建时一并写出，
// 默认布局下结果文件占用了缓存目录的名字，此时只写结果文件
func (c *FileCache) Store(n int) error {
	value := []byte(strconv.Itoa(n))

	if c.resultFile != "" {
		if err := writeFile(c.resultFile, value); err != nil {
			return fmt.Errorf("write build number to %s: %w", c.resultFile, err)
		}
	}

	if c.cacheFile == "" || c.cacheFile == c.resultFile {
		return nil
	}
	if err := writeFile(c.cacheFile, value); err != nil {
		if errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.EEXIST) {
			c.logger.Debug("skipping cache file, its directory is taken by a file",
				clog.String("cache_file", c.cacheFile),
				clog.String("result_file", c.resultFile))
			return nil
		}
		return fmt.Errorf("write build number to %s: %w", c.cacheFile, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
