// Package refstoretest 提供一个进程内的 git refs REST API 模拟服务，用于测试
package refstoretest

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// Call 记录一次收到的请求
type Call struct {
	Method string
	Repo   string
	// Ref 请求涉及的引用名（列表时为前缀）
	Ref string
	// Status 返回的状态码
	Status int
}

// Server 模拟托管服务的 git refs 接口：
//
//	GET    /repos/:owner/:repo/git/refs/*path
//	POST   /repos/:owner/:repo/git/refs
//	DELETE /repos/:owner/:repo/git/refs/*path
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	refs     map[string]map[string]string // repo -> ref -> sha
	calls    []Call
	failures map[string][]int // method -> 依次注入的状态码
	token    string
	gzip     bool
}

// NewServer 启动模拟服务，调用方负责 Close
func NewServer() *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		refs:     make(map[string]map[string]string),
		failures: make(map[string][]int),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.authenticate)
	r.GET("/repos/:owner/:repo/git/refs/*path", s.handleList)
	r.POST("/repos/:owner/:repo/git/refs", s.handleCreate)
	r.DELETE("/repos/:owner/:repo/git/refs/*path", s.handleDelete)

	s.Server = httptest.NewServer(r)
	return s
}

// RequireToken 要求请求携带 "Authorization: token <token>"
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// EnableGzip 让响应体以 gzip 编码返回
func (s *Server) EnableGzip(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gzip = enabled
}

// SetRef 预置一个引用
func (s *Server) SetRef(repo, name, sha string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs[repo] == nil {
		s.refs[repo] = make(map[string]string)
	}
	s.refs[repo][name] = sha
}

// Refs 返回仓库中当前所有引用名，按字典序排列
func (s *Server) Refs(repo string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.refs[repo]))
	for name := range s.refs[repo] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SHA 返回引用指向的提交
func (s *Server) SHA(repo, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sha, ok := s.refs[repo][name]
	return sha, ok
}

// Calls 返回收到的请求记录
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor 返回指定方法的请求记录
func (s *Server) CallsFor(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// FailNext 让下一次 method 请求直接返回 status
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], status)
}

func (s *Server) authenticate(c *gin.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token != "" && c.GetHeader("Authorization") != "token "+token {
		s.reply(c, "", http.StatusUnauthorized, gin.H{"message": "Bad credentials"})
		c.Abort()
		return
	}
	c.Next()
}

// injected 返回为 method 注入的失败状态码
func (s *Server) injected(method string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.failures[method]
	if len(queue) == 0 {
		return 0, false
	}
	s.failures[method] = queue[1:]
	return queue[0], true
}

func repoOf(c *gin.Context) string {
	return c.Param("owner") + "/" + c.Param("repo")
}

func refOf(c *gin.Context) string {
	return "refs" + c.Param("path")
}

func refObject(name, sha string) gin.H {
	return gin.H{
		"ref":    name,
		"object": gin.H{"sha": sha, "type": "commit"},
	}
}

func (s *Server) handleList(c *gin.Context) {
	repo, prefix := repoOf(c), refOf(c)
	if status, ok := s.injected(http.MethodGet); ok {
		s.reply(c, prefix, status, gin.H{"message": "injected failure"})
		return
	}

	s.mu.Lock()
	stored := s.refs[repo]
	sha, exact := stored[prefix]
	var matched []string
	for name := range stored {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	items := make([]gin.H, 0, len(matched))
	for _, name := range matched {
		items = append(items, refObject(name, stored[name]))
	}
	s.mu.Unlock()

	switch {
	case exact:
		s.reply(c, prefix, http.StatusOK, refObject(prefix, sha))
	case len(items) == 0:
		s.reply(c, prefix, http.StatusNotFound, gin.H{"message": "Not Found"})
	default:
		s.reply(c, prefix, http.StatusOK, items)
	}
}

func (s *Server) handleCreate(c *gin.Context) {
	repo := repoOf(c)
	var req struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		s.reply(c, "", http.StatusBadRequest, gin.H{"message": "Problems parsing JSON"})
		return
	}
	if status, ok := s.injected(http.MethodPost); ok {
		s.reply(c, req.Ref, status, gin.H{"message": "injected failure"})
		return
	}
	if !strings.HasPrefix(req.Ref, "refs/") || strings.Count(req.Ref, "/") < 2 || req.SHA == "" {
		s.reply(c, req.Ref, http.StatusUnprocessableEntity, gin.H{"message": "Reference name or sha invalid"})
		return
	}

	s.mu.Lock()
	if s.refs[repo] == nil {
		s.refs[repo] = make(map[string]string)
	}
	_, exists := s.refs[repo][req.Ref]
	if !exists {
		s.refs[repo][req.Ref] = req.SHA
	}
	s.mu.Unlock()

	if exists {
		s.reply(c, req.Ref, http.StatusUnprocessableEntity, gin.H{"message": "Reference already exists"})
		return
	}
	s.reply(c, req.Ref, http.StatusCreated, refObject(req.Ref, req.SHA))
}

func (s *Server) handleDelete(c *gin.Context) {
	repo, name := repoOf(c), refOf(c)
	if status, ok := s.injected(http.MethodDelete); ok {
		s.reply(c, name, status, gin.H{"message": "injected failure"})
		return
	}

	s.mu.Lock()
	_, exists := s.refs[repo][name]
	delete(s.refs[repo], name)
	s.mu.Unlock()

	if !exists {
		s.reply(c, name, http.StatusUnprocessableEntity, gin.H{"message": "Reference does not exist"})
		return
	}
	s.reply(c, name, http.StatusNoContent, nil)
}

// reply 记录请求并写出响应
func (s *Server) reply(c *gin.Context, ref string, status int, body interface{}) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: c.Request.Method, Repo: repoOf(c), Ref: ref, Status: status})
	useGzip := s.gzip
	s.mu.Unlock()

	if body == nil {
		c.Status(status)
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if useGzip {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write(data)
		_ = gz.Close()
		c.Header("Content-Encoding", "gzip")
		data = buf.Bytes()
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
