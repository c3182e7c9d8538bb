package buildnum

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/pipeline"
	"github.com/ceyewan/build-number/refstore/refs"
)

// Result 一次分配的结果
type Result struct {
	// Value 传递给流水线的构建号字符串
	Value string
	// Number 构建号；缓存命中且内容不是正整数时为 0
	Number int
	// Cached 是否来自本地缓存
	Cached bool
	// Marker 新创建的标记名，缓存命中时为空
	Marker string
	// Deleted 成功删除的旧标记
	Deleted []string
	// Warnings 删除失败的旧标记
	Warnings []*Warning
}

// Allocator 计算并声明下一个构建号，随后回收旧标记
type Allocator struct {
	store    refs.Store
	config   Config
	scope    *scope
	cache    Cache
	recorder Recorder
	logger   clog.Logger
}

// New 创建分配器
// 必需输入（token、repository、commit sha）在 Allocate 缓存未命中时才检查，
// 使后续阶段只依赖缓存文件即可运行
func New(store refs.Store, config *Config, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, fmt.Errorf("ref store cannot be nil")
	}
	if config == nil {
		config = GetDefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, NewError(ErrCodeConfiguration, "invalid configuration", err)
	}

	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = clog.Namespace("buildnum")
	}
	cache := options.cache
	if cache == nil {
		cache = pipeline.NewFileCache(pipeline.GetDefaultPaths(), logger)
	}
	recorder := options.recorder
	if recorder == nil {
		recorder = pipeline.NewOutputs(pipeline.GetDefaultPaths(), logger)
	}

	return &Allocator{
		store:    store,
		config:   *config,
		scope:    newScope(config.Prefix),
		cache:    cache,
		recorder: recorder,
		logger: logger.With(
			clog.String("repository", config.Repository),
			clog.String("prefix", config.Prefix)),
	}, nil
}

// Allocate 依次执行：缓存检查 → 列出旧标记 → 计算下一个构建号 → 创建新标记 → 记录输出 → 回收旧标记
// 返回的 error 均为 *Error；回收阶段的失败只体现在 Result.Warnings 中
func (a *Allocator) Allocate(ctx context.Context) (*Result, error) {
	if result, ok, err := a.fromCache(); err != nil || ok {
		return result, err
	}

	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	old, err := a.listMarkers(ctx)
	if err != nil {
		return nil, err
	}

	next := nextNumber(old)
	marker := a.scope.markerName(next)
	a.logger.Info("updating build counter", clog.BuildNumber(next), clog.Ref(marker))

	if err := a.claim(ctx, marker); err != nil {
		return nil, err
	}
	a.logger.Info("successfully updated build number", clog.BuildNumber(next))

	value := strconv.Itoa(next)
	if err := a.recorder.Record(value); err != nil {
		return nil, NewError(ErrCodeRecord, fmt.Sprintf("build number %d was claimed but could not be recorded", next), err)
	}
	if err := a.cache.Store(next); err != nil {
		return nil, NewError(ErrCodeRecord, fmt.Sprintf("build number %d was claimed but could not be saved", next), err)
	}

	result := &Result{Value: value, Number: next, Marker: marker}
	result.Deleted, result.Warnings = a.collectGarbage(ctx, old)
	return result, nil
}

// fromCache 命中本地缓存时直接转发缓存值，不访问 Ref Store
func (a *Allocator) fromCache() (*Result, bool, error) {
	value, ok, err := a.cache.Load()
	if err != nil {
		return nil, false, NewError(ErrCodeRecord, "failed to read cached build number", err)
	}
	if !ok {
		return nil, false, nil
	}

	a.logger.Info("build number already generated in earlier jobs, reusing it", clog.String("build_number", value))

	n, convErr := strconv.Atoi(value)
	if convErr != nil || n <= 0 {
		a.logger.Warn("cached build number is not a positive integer, forwarding it unchanged", clog.String("value", value))
		n = 0
	}

	if err := a.recorder.Record(value); err != nil {
		return nil, false, NewError(ErrCodeRecord, "failed to record cached build number", err)
	}
	return &Result{Value: value, Number: n, Cached: true}, true, nil
}

// marker 一个已存在的标记及其构建号
type marker struct {
	name   string
	number int
}

// listMarkers 列出当前命名空间内的标记，并校验数量上限
func (a *Allocator) listMarkers(ctx context.Context) ([]marker, error) {
	prefix := a.scope.listPrefix()
	resp, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, NewError(ErrCodeTransport, "failed to get refs", err)
	}

	switch resp.Status {
	case http.StatusNotFound:
		a.logger.Info("no build-number ref available, starting at 1")
		return nil, nil
	case http.StatusOK:
	default:
		return nil, newStatusError("getting build-number refs failed", resp.Status, resp.Payload)
	}

	markers := make([]marker, 0, len(resp.Refs))
	for _, ref := range resp.Refs {
		n, ok := a.scope.parse(ref.Name)
		if !ok {
			a.logger.Debug("ignoring ref outside the counter namespace", clog.Ref(ref.Name))
			continue
		}
		markers = append(markers, marker{name: ref.Name, number: n})
	}

	if len(markers) > a.config.MaxOldMarkers {
		return nil, NewError(ErrCodeInvariantViolation,
			fmt.Sprintf("too many %s refs in repository, found %d, expected at most %d. Check your tags!",
				a.scope.base, len(markers), a.config.MaxOldMarkers), nil)
	}

	if len(markers) > 0 {
		a.logger.Info("last build number found", clog.BuildNumber(nextNumber(markers)-1), clog.Int("markers", len(markers)))
	}
	return markers, nil
}

// nextNumber 返回最大构建号加一，没有标记时返回 1
func nextNumber(markers []marker) int {
	highest := 0
	for _, m := range markers {
		if m.number > highest {
			highest = m.number
		}
	}
	return highest + 1
}

// claim 创建新标记；只接受 201，不重试
func (a *Allocator) claim(ctx context.Context, name string) error {
	resp, err := a.store.Create(ctx, refs.Ref{Name: name, SHA: a.config.CommitSHA})
	if err != nil {
		return NewError(ErrCodeTransport, "failed to create new build-number ref", err)
	}
	if resp.Status != http.StatusCreated {
		return newStatusError(fmt.Sprintf("failed to create new build-number ref %s", name), resp.Status, resp.Payload)
	}
	return nil
}

// collectGarbage 并发删除所有旧标记，等待全部完成后返回
func (a *Allocator) collectGarbage(ctx context.Context, old []marker) ([]string, []*Warning) {
	if len(old) == 0 {
		return nil, nil
	}
	a.logger.Info("deleting older build counters", clog.Int("count", len(old)))

	warnings := make([]*Warning, len(old))
	var g errgroup.Group
	for i, m := range old {
		i, m := i, m
		g.Go(func() error {
			warnings[i] = a.deleteMarker(ctx, m.name)
			return nil
		})
	}
	_ = g.Wait()

	var deleted []string
	var failed []*Warning
	for i, w := range warnings {
		if w != nil {
			failed = append(failed, w)
			continue
		}
		deleted = append(deleted, old[i].name)
	}
	return deleted, failed
}

// deleteMarker 删除一个旧标记，失败时记录警告
func (a *Allocator) deleteMarker(ctx context.Context, name string) *Warning {
	resp, err := a.store.Delete(ctx, name)
	var w *Warning
	switch {
	case err != nil:
		w = &Warning{Ref: name, Cause: err}
	case resp.Status != http.StatusNoContent:
		w = &Warning{Ref: name, Status: resp.Status, Payload: resp.Payload}
	default:
		a.logger.Info("deleted ref", clog.Ref(name))
		return nil
	}

	a.logger.Warn("failed to delete ref", clog.Ref(name), clog.Status(w.Status), clog.Err(w))
	return w
}
