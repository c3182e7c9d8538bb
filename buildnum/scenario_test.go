package buildnum

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/build-number/pipeline"
	"github.com/ceyewan/build-number/refstore"
	"github.com/ceyewan/build-number/refstore/refstoretest"
)

// newServerAllocator 通过 github 后端连接模拟服务
func newServerAllocator(t *testing.T, srv *refstoretest.Server, prefix string, paths *pipeline.Paths) (*Allocator, *Config) {
	t.Helper()
	cfg := testConfig(prefix)

	storeCfg := refstore.GetDefaultConfig("production")
	storeCfg.Repository = cfg.Repository
	storeCfg.GitHub.APIURL = srv.URL
	storeCfg.GitHub.Token = cfg.Token
	srv.RequireToken(cfg.Token)

	store, err := refstore.New(context.Background(), storeCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return newTestAllocator(t, store, cfg, paths), cfg
}

func TestScenario_PrefixedCounter(t *testing.T) {
	srv := refstoretest.NewServer()
	defer srv.Close()
	srv.SetRef("octo/app", "refs/tags/rel-build-number-1", "sha1")
	srv.SetRef("octo/app", "refs/tags/rel-build-number-2", "sha2")
	srv.SetRef("octo/app", "refs/tags/build-number-40", "sha40")
	srv.SetRef("octo/app", "refs/tags/v1.0.0", "shav")

	paths := testPaths(t)
	a, cfg := newServerAllocator(t, srv, "rel", paths)
	result, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Number)
	assert.Empty(t, result.Warnings)

	creates := srv.CallsFor(http.MethodPost)
	require.Len(t, creates, 1)
	assert.Equal(t, "refs/tags/rel-build-number-3", creates[0].Ref)
	assert.Equal(t, http.StatusCreated, creates[0].Status)

	var deleted []string
	for _, c := range srv.CallsFor(http.MethodDelete) {
		deleted = append(deleted, c.Ref)
		assert.Equal(t, http.StatusNoContent, c.Status)
	}
	assert.ElementsMatch(t, []string{"refs/tags/rel-build-number-1", "refs/tags/rel-build-number-2"}, deleted)

	assert.Equal(t, []string{
		"refs/tags/build-number-40",
		"refs/tags/rel-build-number-3",
		"refs/tags/v1.0.0",
	}, srv.Refs("octo/app"))
	sha, _ := srv.SHA("octo/app", "refs/tags/rel-build-number-3")
	assert.Equal(t, cfg.CommitSHA, sha)

	assert.Equal(t, "BUILD_NUMBER=3\n", readFile(t, paths.EnvFile))
	assert.Equal(t, "build_number=3\n", readFile(t, paths.OutputFile))
}

func TestScenario_ConsecutiveRuns(t *testing.T) {
	srv := refstoretest.NewServer()
	defer srv.Close()

	for want := 1; want <= 3; want++ {
		a, _ := newServerAllocator(t, srv, "", testPaths(t))
		result, err := a.Allocate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, result.Number)
	}
	// 每次运行后只剩下最新的标记
	assert.Equal(t, []string{"refs/tags/build-number-3"}, srv.Refs("octo/app"))
}

func TestScenario_RacingClaimIsFatal(t *testing.T) {
	srv := refstoretest.NewServer()
	defer srv.Close()
	srv.SetRef("octo/app", "refs/tags/build-number-1", "sha1")

	a, _ := newServerAllocator(t, srv, "", testPaths(t))
	// 另一条流水线在 list 与 create 之间抢先创建了同名标记
	srv.FailNext(http.MethodPost, http.StatusUnprocessableEntity)

	_, err := a.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeUnexpectedStatus))
	assert.Empty(t, srv.CallsFor(http.MethodDelete))
}

func TestScenario_GzipAndBadCredentials(t *testing.T) {
	srv := refstoretest.NewServer()
	defer srv.Close()
	srv.EnableGzip(true)
	srv.SetRef("octo/app", "refs/tags/build-number-5", "sha5")

	a, _ := newServerAllocator(t, srv, "", testPaths(t))
	result, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, result.Number)

	srv.RequireToken("rotated")
	a2 := newTestAllocator(t, a.store, testConfig(""), testPaths(t))
	_, err = a2.Allocate(context.Background())
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Contains(t, err.Error(), "Bad credentials")
}
