package refstore

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// BackendGitHub 使用托管服务的 git refs REST API
	BackendGitHub = "github"
	// BackendEtcd 使用 etcd 键空间
	BackendEtcd = "etcd"
)

// Config 是 refstore 组件的配置结构体
type Config struct {
	// Backend 后端类型: "github" 或 "etcd"
	Backend string `json:"backend"`

	// Repository 仓库标识 owner/name，所有引用都在该仓库范围内
	Repository string `json:"repository"`

	// GitHub 后端配置
	GitHub GitHubConfig `json:"github"`

	// Etcd 后端配置
	Etcd EtcdConfig `json:"etcd"`
}

// GitHubConfig 定义了 REST API 连接配置
type GitHubConfig struct {
	APIURL    string        `json:"apiURL"`
	Token     string        `json:"-"`
	UserAgent string        `json:"userAgent,omitempty"`
	Timeout   time.Duration `json:"timeout"` // 0 表示不设超时
}

// EtcdConfig 定义了 etcd 连接配置
type EtcdConfig struct {
	Endpoints   []string      `json:"endpoints"`
	DialTimeout time.Duration `json:"dialTimeout"`
	Username    string        `json:"username,omitempty"`
	Password    string        `json:"-"`
	Root        string        `json:"root"`
}

// GetDefaultConfig 返回默认的 refstore 配置
func GetDefaultConfig(env string) *Config {
	cfg := &Config{
		Backend: BackendGitHub,
		GitHub: GitHubConfig{
			APIURL:    "https://api.github.com",
			UserAgent: "build-number-action",
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"localhost:2379"},
			DialTimeout: 5 * time.Second,
			Root:        "/build-number",
		},
	}
	if env == "development" {
		cfg.GitHub.Timeout = 30 * time.Second
	}
	return cfg
}

// Validate 验证配置的有效性
// Repository 与 Token 由分配器在实际访问前检查，这里只校验连接参数
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGitHub:
		if _, err := url.ParseRequestURI(c.GitHub.APIURL); err != nil {
			return fmt.Errorf("invalid github api url %q: %w", c.GitHub.APIURL, err)
		}
		if c.GitHub.Timeout < 0 {
			return fmt.Errorf("github timeout cannot be negative")
		}
	case BackendEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd endpoints cannot be empty")
		}
		if c.Etcd.DialTimeout <= 0 {
			return fmt.Errorf("etcd dial timeout must be positive")
		}
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	return nil
}
