package buildnum

import (
	"fmt"
	"strings"
)

// DefaultMaxOldMarkers 分配前允许存在的旧标记数量上限
const DefaultMaxOldMarkers = 5

// Config 是分配器的配置，在进程启动时构造一次后传入
type Config struct {
	// Repository 仓库标识 owner/name
	Repository string `json:"repository"`
	// Prefix 可选的命名空间前缀，空前缀本身也是一个独立的命名空间
	Prefix string `json:"prefix"`
	// CommitSHA 新标记指向的提交
	CommitSHA string `json:"commitSha"`
	// Token 访问 Ref Store 的凭据
	Token string `json:"-"`
	// MaxOldMarkers 旧标记数量上限，超过即视为计数器状态已损坏
	MaxOldMarkers int `json:"maxOldMarkers"`
}

// GetDefaultConfig 返回默认配置
func GetDefaultConfig() *Config {
	return &Config{
		MaxOldMarkers: DefaultMaxOldMarkers,
	}
}

// validate 检查结构性参数，在创建分配器时调用
func (c *Config) validate() error {
	if c.MaxOldMarkers <= 0 {
		return fmt.Errorf("max old markers must be positive, got %d", c.MaxOldMarkers)
	}
	if strings.ContainsAny(c.Prefix, " ~^:?*[\\") {
		return fmt.Errorf("prefix %q contains characters not allowed in a ref name", c.Prefix)
	}
	return nil
}

// Validate 检查必需的输入，缺失时返回 CONFIGURATION_ERROR
// 在缓存未命中、即将访问 Ref Store 之前调用
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"token", c.Token},
		{"repository", c.Repository},
		{"commit sha", c.CommitSHA},
	}
	for _, r := range required {
		if r.value == "" {
			return NewError(ErrCodeConfiguration, fmt.Sprintf("required input %s is not defined", r.name), nil)
		}
	}
	if err := c.validate(); err != nil {
		return NewError(ErrCodeConfiguration, "invalid configuration", err)
	}
	return nil
}
