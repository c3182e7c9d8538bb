package githubimpl

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/refstore/refs"
)

const (
	// DefaultAPIURL GitHub REST API 地址
	DefaultAPIURL = "https://api.github.com"
	// DefaultUserAgent 请求使用的 User-Agent
	DefaultUserAgent = "build-number-action"
)

// Config GitHub Ref Store 配置
type Config struct {
	// APIURL API 根地址，GitHub Enterprise 时为 https://<host>/api/v3
	APIURL string
	// Token 认证令牌
	Token string
	// Repository 仓库标识，格式为 owner/name
	Repository string
	// UserAgent 可选，默认 DefaultUserAgent
	UserAgent string
	// Timeout 单次请求超时，0 表示不设超时
	Timeout time.Duration
	// HTTPClient 可选，优先于 Timeout
	HTTPClient *http.Client
	// Logger 可选的日志记录器
	Logger clog.Logger
}

// githubStore 基于 git refs REST API 的 Ref Store 实现
type githubStore struct {
	client     *http.Client
	baseURL    string
	token      string
	repository string
	userAgent  string
	logger     clog.Logger
}

var _ refs.Store = (*githubStore)(nil)

// ref 是 GitHub git refs API 返回的引用对象
type ref struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

// createRefRequest 是创建引用的请求体
type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// New 创建 GitHub Ref Store
func New(cfg Config) (refs.Store, error) {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", apiURL, err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = clog.Namespace("refstore.github")
	}

	return &githubStore{
		client:     client,
		baseURL:    strings.TrimRight(apiURL, "/"),
		token:      cfg.Token,
		repository: cfg.Repository,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

// List 对应 GET /repos/{repo}/git/refs/tags/{prefix}
// GitHub 对精确匹配返回单个对象，对前缀匹配返回数组，两种形式统一为列表
func (s *githubStore) List(ctx context.Context, prefix string) (*refs.Response, error) {
	resp, err := s.do(ctx, http.MethodGet, s.repoPath("git", prefix), nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return resp, nil
	}

	list, err := decodeRefs(resp.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode refs: %w", err)
	}
	resp.Refs = list
	return resp, nil
}

// Create 对应 POST /repos/{repo}/git/refs
func (s *githubStore) Create(ctx context.Context, r refs.Ref) (*refs.Response, error) {
	body, err := json.Marshal(&createRefRequest{Ref: r.Name, SHA: r.SHA})
	if err != nil {
		return nil, fmt.Errorf("marshal create ref request: %w", err)
	}
	return s.do(ctx, http.MethodPost, s.repoPath("git", "refs"), body)
}

// Delete 对应 DELETE /repos/{repo}/git/{ref}
func (s *githubStore) Delete(ctx context.Context, name string) (*refs.Response, error) {
	return s.do(ctx, http.MethodDelete, s.repoPath("git", name), nil)
}

// Close 无需释放资源
func (s *githubStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// repoPath 拼接 /repos/{owner}/{repo}/... 路径，ref 中的每一段单独转义
func (s *githubStore) repoPath(parts ...string) string {
	var b strings.Builder
	b.WriteString("/repos/")
	b.WriteString(s.repository)
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg))
		}
	}
	return b.String()
}

// do 发送请求并读取完整响应体
func (s *githubStore) do(ctx context.Context, method, path string, body []byte) (*refs.Response, error) {
	if s.repository == "" {
		return nil, fmt.Errorf("repository is not configured")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", s.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}

	s.logger.Debug("sending request",
		clog.String("method", method),
		clog.String("path", path))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	s.logger.Debug("received response",
		clog.String("method", method),
		clog.String("path", path),
		clog.Status(resp.StatusCode))

	return &refs.Response{Status: resp.StatusCode, Payload: payload}, nil
}

// readBody 读取响应体，Content-Encoding 为 gzip 时解压
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			// 空响应体没有 gzip 头
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// decodeRefs 解析列表响应，兼容数组与单个对象
func decodeRefs(payload []byte) ([]refs.Ref, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw []ref
	if trimmed[0] == '{' {
		var single ref
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		raw = append(raw, single)
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}

	out := make([]refs.Ref, 0, len(raw))
	for _, r := range raw {
		out = append(out, refs.Ref{Name: r.Ref, SHA: r.Object.SHA})
	}
	return out, nil
}
