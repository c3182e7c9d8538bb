// Package settings 在进程启动时把运行环境一次性读入各组件的显式配置
package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ceyewan/build-number/buildnum"
	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/pipeline"
	"github.com/ceyewan/build-number/refstore"
)

// 配置键与环境变量的对应关系
var bindings = map[string]string{
	"token":          "INPUT_TOKEN",
	"prefix":         "INPUT_PREFIX",
	"repository":     "GITHUB_REPOSITORY",
	"sha":            "GITHUB_SHA",
	"env_file":       "GITHUB_ENV",
	"output_file":    "GITHUB_OUTPUT",
	"api_url":        "GITHUB_API_URL",
	"backend":        "INPUT_BACKEND",
	"etcd.endpoints": "INPUT_ETCD_ENDPOINTS",
	"etcd.root":      "INPUT_ETCD_ROOT",
	"timeout":        "INPUT_TIMEOUT",
	"log.level":      "INPUT_LOG_LEVEL",
	"log.format":     "INPUT_LOG_FORMAT",
	"log.file":       "INPUT_LOG_FILE",
}

// Settings 汇总所有组件的配置
type Settings struct {
	Allocator *buildnum.Config
	Store     *refstore.Config
	Paths     *pipeline.Paths
	Log       *clog.Config
}

// Load 从进程环境变量读取配置
func Load() (*Settings, error) {
	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return LoadFrom(v)
}

// LoadFrom 从给定的 viper 实例读取配置，未设置的键使用各组件的默认值
// 必需输入（token、repository、sha）在这里不做检查，缓存命中时它们可以缺失
func LoadFrom(v *viper.Viper) (*Settings, error) {
	storeDefaults := refstore.GetDefaultConfig("production")
	logDefaults := clog.GetDefaultConfig("ci")

	v.SetDefault("backend", storeDefaults.Backend)
	v.SetDefault("api_url", storeDefaults.GitHub.APIURL)
	v.SetDefault("etcd.root", storeDefaults.Etcd.Root)
	v.SetDefault("timeout", "0")
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)

	s := &Settings{
		Allocator: buildnum.GetDefaultConfig(),
		Store:     storeDefaults,
		Paths:     pipeline.GetDefaultPaths(),
		Log:       logDefaults,
	}

	s.Allocator.Token = v.GetString("token")
	s.Allocator.Prefix = strings.TrimSpace(v.GetString("prefix"))
	s.Allocator.Repository = v.GetString("repository")
	s.Allocator.CommitSHA = v.GetString("sha")

	timeout, err := parseTimeout(v.GetString("timeout"))
	if err != nil {
		return nil, err
	}

	s.Store.Backend = strings.ToLower(strings.TrimSpace(v.GetString("backend")))
	s.Store.Repository = s.Allocator.Repository
	s.Store.GitHub.APIURL = strings.TrimRight(v.GetString("api_url"), "/")
	s.Store.GitHub.Token = s.Allocator.Token
	s.Store.GitHub.Timeout = timeout
	if endpoints := splitList(v.GetString("etcd.endpoints")); len(endpoints) > 0 {
		s.Store.Etcd.Endpoints = endpoints
	}
	s.Store.Etcd.Root = v.GetString("etcd.root")

	s.Paths.EnvFile = v.GetString("env_file")
	s.Paths.OutputFile = v.GetString("output_file")

	s.Log.Level = strings.ToLower(v.GetString("log.level"))
	s.Log.Format = strings.ToLower(v.GetString("log.format"))
	if file := v.GetString("log.file"); file != "" {
		s.Log.Output = file
	}

	if err := s.Store.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ref store settings: %w", err)
	}
	if err := s.Log.Validate(); err != nil {
		return nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return s, nil
}

// parseTimeout 接受 Go duration（"30s"）或整秒数（"30"），空值表示不设超时
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" || raw == "0s" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(raw + "s")
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
