package refstore

import (
	"context"
	"fmt"

	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/refstore/internal/etcdimpl"
	"github.com/ceyewan/build-number/refstore/internal/githubimpl"
	"github.com/ceyewan/build-number/refstore/refs"
)

// New 按配置创建 Ref Store
// 创建过程不访问远端，第一次网络请求发生在 List/Create/Delete 调用时
func New(ctx context.Context, config *Config, opts ...Option) (refs.Store, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	var logger clog.Logger
	if options.Logger != nil {
		logger = options.Logger.With(clog.String("component", "refstore"))
	} else {
		logger = clog.Namespace("refstore")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("creating ref store",
		clog.String("backend", config.Backend),
		clog.String("repository", config.Repository))

	switch config.Backend {
	case BackendEtcd:
		return etcdimpl.New(etcdimpl.Config{
			Endpoints:   config.Etcd.Endpoints,
			DialTimeout: config.Etcd.DialTimeout,
			Username:    config.Etcd.Username,
			Password:    config.Etcd.Password,
			Root:        config.Etcd.Root,
			Repository:  config.Repository,
			Logger:      logger.Namespace("etcd"),
		})
	default:
		return githubimpl.New(githubimpl.Config{
			APIURL:     config.GitHub.APIURL,
			Token:      config.GitHub.Token,
			Repository: config.Repository,
			UserAgent:  config.GitHub.UserAgent,
			Timeout:    config.GitHub.Timeout,
			HTTPClient: options.HTTPClient,
			Logger:     logger.Namespace("github"),
		})
	}
}
