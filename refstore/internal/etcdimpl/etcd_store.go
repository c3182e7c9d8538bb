package etcdimpl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/refstore/refs"
)

// DefaultRoot 引用键空间的根路径
const DefaultRoot = "/build-number"

// Config etcd Ref Store 配置
type Config struct {
	// Endpoints etcd 服务器地址列表
	Endpoints []string
	// DialTimeout 连接超时时间
	DialTimeout time.Duration
	// Username etcd 用户名（可选）
	Username string
	// Password etcd 密码（可选）
	Password string
	// Root 键前缀，默认 DefaultRoot
	Root string
	// Repository 仓库标识，作为键空间的一级目录
	Repository string
	// Logger 可选的日志记录器
	Logger clog.Logger
}

// etcdStore 以 etcd 键值对模拟 git refs：<root>/<repo>/<ref> -> sha
type etcdStore struct {
	client     *clientv3.Client
	root       string
	repository string
	logger     clog.Logger
}

var _ refs.Store = (*etcdStore)(nil)

// New 创建 etcd Ref Store，连接在首次请求时建立
func New(cfg Config) (refs.Store, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return newWithClient(client, cfg), nil
}

func newWithClient(client *clientv3.Client, cfg Config) *etcdStore {
	root := cfg.Root
	if root == "" {
		root = DefaultRoot
	}

	logger := cfg.Logger
	if logger == nil {
		logger = clog.Namespace("refstore.etcd")
	}

	return &etcdStore{
		client:     client,
		root:       strings.TrimRight(root, "/"),
		repository: cfg.Repository,
		logger:     logger.With(clog.Strings("endpoints", cfg.Endpoints)),
	}
}

// key 返回引用在 etcd 中的完整键
func (s *etcdStore) key(name string) string {
	return s.root + "/" + s.repository + "/" + name
}

// List 前缀查询；没有匹配项时返回 404，与托管服务保持一致
func (s *etcdStore) List(ctx context.Context, prefix string) (*refs.Response, error) {
	if err := s.checkScope(); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, s.key(prefix), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return classify(err, "list refs")
	}
	if len(resp.Kvs) == 0 {
		return message(http.StatusNotFound, "Not Found"), nil
	}

	base := s.key("")
	out := make([]refs.Ref, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, refs.Ref{
			Name: strings.TrimPrefix(string(kv.Key), base),
			SHA:  string(kv.Value),
		})
	}
	return &refs.Response{Status: http.StatusOK, Refs: out}, nil
}

// Create 使用事务保证只在键不存在时写入
func (s *etcdStore) Create(ctx context.Context, ref refs.Ref) (*refs.Response, error) {
	if err := s.checkScope(); err != nil {
		return nil, err
	}

	key := s.key(ref.Name)
	txn := s.client.Txn(ctx).If(
		clientv3.Compare(clientv3.ModRevision(key), "=", 0),
	).Then(
		clientv3.OpPut(key, ref.SHA),
	)

	resp, err := txn.Commit()
	if err != nil {
		return classify(err, "create ref")
	}
	if !resp.Succeeded {
		return message(http.StatusUnprocessableEntity, "Reference already exists"), nil
	}

	s.logger.Debug("ref created", clog.Ref(ref.Name), clog.Int64("revision", resp.Header.Revision))
	return &refs.Response{Status: http.StatusCreated}, nil
}

// Delete 删除键；键不存在时返回 422
func (s *etcdStore) Delete(ctx context.Context, name string) (*refs.Response, error) {
	if err := s.checkScope(); err != nil {
		return nil, err
	}

	resp, err := s.client.Delete(ctx, s.key(name))
	if err != nil {
		return classify(err, "delete ref")
	}
	if resp.Deleted == 0 {
		return message(http.StatusUnprocessableEntity, "Reference does not exist"), nil
	}
	return &refs.Response{Status: http.StatusNoContent}, nil
}

// Close 关闭客户端连接
func (s *etcdStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close etcd client: %w", err)
	}
	return nil
}

func (s *etcdStore) checkScope() error {
	if s.repository == "" {
		return fmt.Errorf("repository is not configured")
	}
	return nil
}

// classify 将认证类错误转换为对应状态码，其余视为传输错误
func classify(err error, op string) (*refs.Response, error) {
	switch grpcCode(err) {
	case codes.PermissionDenied:
		return message(http.StatusForbidden, err.Error()), nil
	case codes.Unauthenticated:
		return message(http.StatusUnauthorized, err.Error()), nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

func grpcCode(err error) codes.Code {
	var etcdErr rpctypes.EtcdError
	if errors.As(err, &etcdErr) {
		return etcdErr.Code()
	}
	return status.Code(err)
}

func message(code int, msg string) *refs.Response {
	payload, _ := json.Marshal(map[string]string{"message": msg})
	return &refs.Response{Status: code, Payload: payload}
}
