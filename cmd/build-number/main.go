package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ceyewan/build-number/buildnum"
	"github.com/ceyewan/build-number/clog"
	"github.com/ceyewan/build-number/pipeline"
	"github.com/ceyewan/build-number/refstore"
	"github.com/ceyewan/build-number/settings"
)

func main() {
	os.Exit(run(os.Stdout))
}

// run 返回进程退出码：成功为 0，任何致命错误为 1
// stdout 接收工作流命令（注解与最终的 ::error:: 行）
func run(stdout io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = clog.WithTraceID(ctx, newTraceID())

	cfg, err := settings.Load()
	if err != nil {
		pipeline.Fail(stdout, err)
		return 1
	}

	if err := clog.Init(ctx, cfg.Log, clog.WithNamespace("build-number"), clog.WithAnnotationWriter(stdout)); err != nil {
		pipeline.Fail(stdout, err)
		return 1
	}
	defer func() { _ = clog.Sync() }()
	logger := clog.WithContext(ctx)

	store, err := refstore.New(ctx, cfg.Store, refstore.WithLogger(logger))
	if err != nil {
		pipeline.Fail(stdout, err)
		return 1
	}
	defer func() { _ = store.Close() }()

	allocator, err := buildnum.New(store, cfg.Allocator,
		buildnum.WithLogger(logger),
		buildnum.WithCache(pipeline.NewFileCache(cfg.Paths, logger)),
		buildnum.WithRecorder(pipeline.NewOutputs(cfg.Paths, logger)))
	if err != nil {
		pipeline.Fail(stdout, err)
		return 1
	}

	result, err := allocator.Allocate(ctx)
	if err != nil {
		pipeline.Fail(stdout, err)
		return 1
	}

	if result.Cached {
		logger.Info("reused build number", clog.String("build_number", result.Value))
		return 0
	}
	logger.Info("build number allocated",
		clog.BuildNumber(result.Number),
		clog.Ref(result.Marker),
		clog.Int("deleted", len(result.Deleted)),
		clog.Int("warnings", len(result.Warnings)))
	return 0
}

// newTraceID 为本次运行生成一个按时间排序的 ID
func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
