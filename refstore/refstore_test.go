package refstore

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/build-number/refstore/refs"
	"github.com/ceyewan/build-number/refstore/refstoretest"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, GetDefaultConfig("production").Validate())

	cfg := GetDefaultConfig("production")
	cfg.Backend = "s3"
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultConfig("production")
	cfg.GitHub.APIURL = "not-a-url"
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultConfig("production")
	cfg.Backend = BackendEtcd
	require.NoError(t, cfg.Validate())
	cfg.Etcd.Endpoints = nil
	assert.Error(t, cfg.Validate())

	cfg = GetDefaultConfig("production")
	cfg.Backend = BackendEtcd
	cfg.Etcd.DialTimeout = 0
	assert.Error(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, GetDefaultConfig("development").GitHub.Timeout)
}

func TestNew_GitHubBackend(t *testing.T) {
	srv := refstoretest.NewServer()
	defer srv.Close()

	cfg := GetDefaultConfig("production")
	cfg.Repository = "octo/app"
	cfg.GitHub.APIURL = srv.URL
	cfg.GitHub.Token = "tkn"
	srv.RequireToken("tkn")

	store, err := New(context.Background(), cfg, WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	require.NoError(t, err)
	defer store.Close()

	resp, err := store.Create(context.Background(), refs.Ref{Name: "refs/tags/build-number-1", SHA: "abc"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, []string{"refs/tags/build-number-1"}, srv.Refs("octo/app"))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := GetDefaultConfig("production")
	cfg.Backend = ""
	store, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNew_EtcdBackendIsLazy(t *testing.T) {
	cfg := GetDefaultConfig("production")
	cfg.Backend = BackendEtcd
	cfg.Repository = "octo/app"
	cfg.Etcd.Endpoints = []string{"127.0.0.1:1"}

	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
