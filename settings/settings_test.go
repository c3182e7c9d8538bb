package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/build-number/buildnum"
	"github.com/ceyewan/build-number/pipeline"
	"github.com/ceyewan/build-number/refstore"
)

// clearEnv 清空所有绑定的环境变量，避免宿主 CI 环境干扰
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range bindings {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, buildnum.DefaultMaxOldMarkers, s.Allocator.MaxOldMarkers)
	assert.Empty(t, s.Allocator.Token)
	assert.Empty(t, s.Allocator.Prefix)

	assert.Equal(t, refstore.BackendGitHub, s.Store.Backend)
	assert.Equal(t, "https://api.github.com", s.Store.GitHub.APIURL)
	assert.Zero(t, s.Store.GitHub.Timeout)
	assert.Equal(t, []string{"localhost:2379"}, s.Store.Etcd.Endpoints)

	assert.Equal(t, pipeline.DefaultCacheFile, s.Paths.CacheFile)
	assert.Equal(t, pipeline.DefaultResultFile, s.Paths.ResultFile)
	assert.Empty(t, s.Paths.EnvFile)
	assert.Empty(t, s.Paths.OutputFile)

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "stdout", s.Log.Output)
	assert.True(t, s.Log.Annotations)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPUT_TOKEN", "secret")
	t.Setenv("INPUT_PREFIX", " rel ")
	t.Setenv("GITHUB_REPOSITORY", "octo/app")
	t.Setenv("GITHUB_SHA", "deadbeef")
	t.Setenv("GITHUB_ENV", "/tmp/env")
	t.Setenv("GITHUB_OUTPUT", "/tmp/output")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("INPUT_TIMEOUT", "45")
	t.Setenv("INPUT_LOG_LEVEL", "DEBUG")
	t.Setenv("INPUT_LOG_FORMAT", "json")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", s.Allocator.Token)
	assert.Equal(t, "rel", s.Allocator.Prefix)
	assert.Equal(t, "octo/app", s.Allocator.Repository)
	assert.Equal(t, "deadbeef", s.Allocator.CommitSHA)

	assert.Equal(t, "octo/app", s.Store.Repository)
	assert.Equal(t, "secret", s.Store.GitHub.Token)
	assert.Equal(t, "https://ghe.example.com/api/v3", s.Store.GitHub.APIURL)
	assert.Equal(t, 45*time.Second, s.Store.GitHub.Timeout)

	assert.Equal(t, "/tmp/env", s.Paths.EnvFile)
	assert.Equal(t, "/tmp/output", s.Paths.OutputFile)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
}

func TestLoad_EtcdBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPUT_BACKEND", "etcd")
	t.Setenv("INPUT_ETCD_ENDPOINTS", "etcd-0:2379, etcd-1:2379,,")
	t.Setenv("INPUT_ETCD_ROOT", "/ci/counters")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, refstore.BackendEtcd, s.Store.Backend)
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, s.Store.Etcd.Endpoints)
	assert.Equal(t, "/ci/counters", s.Store.Etcd.Root)
}

func TestLoad_MissingTokenIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "octo/app")

	s, err := Load()
	require.NoError(t, err)

	// 缺少 token 只会在缓存未命中、即将访问 Ref Store 时报告
	err = s.Allocator.Validate()
	require.Error(t, err)
	assert.True(t, buildnum.IsCode(err, buildnum.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "required input token is not defined")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"INPUT_BACKEND": "s3"}},
		{"bad timeout", map[string]string{"INPUT_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"INPUT_TIMEOUT": "-5"}},
		{"bad log level", map[string]string{"INPUT_LOG_LEVEL": "verbose"}},
		{"bad api url", map[string]string{"GITHUB_API_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseTimeout(t *testing.T) {
	d, err := parseTimeout("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = parseTimeout("")
	require.NoError(t, err)
	assert.Zero(t, d)
}
