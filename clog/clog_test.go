package clog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoreFeatures tests core clog functionality: config, levels, namespace, traceid, annotations, rotation
func TestCoreFeatures(t *testing.T) {
	t.Run("Environment Defaults", testEnvDefaults)
	t.Run("Validate", testValidate)
	t.Run("Log Levels", testLogLevels)
	t.Run("Hierarchical Namespace", testNamespace)
	t.Run("Context TraceID", testTraceID)
	t.Run("Annotations", testAnnotations)
	t.Run("Fatal", testFatal)
	t.Run("File Rotation", testRotation)
}

// testEnvDefaults verifies GetDefaultConfig
func testEnvDefaults(t *testing.T) {
	ci := GetDefaultConfig("ci")
	assert.Equal(t, "info", ci.Level)
	assert.True(t, ci.Annotations)
	assert.False(t, ci.EnableColor)

	dev := GetDefaultConfig("development")
	assert.Equal(t, "debug", dev.Level)
	assert.Equal(t, "console", dev.Format)

	prod := GetDefaultConfig("production")
	assert.Equal(t, "json", prod.Format)
	assert.False(t, prod.Annotations)
}

func testValidate(t *testing.T) {
	require.NoError(t, GetDefaultConfig("ci").Validate())

	bad := []*Config{
		{Level: "trace", Format: "json", Output: "stdout"},
		{Level: "info", Format: "xml", Output: "stdout"},
		{Level: "info", Format: "json", Output: ""},
		{Level: "info", Format: "json", Output: "stdout", Rotation: &RotationConfig{MaxSize: 1}},
		{Level: "info", Format: "json", Output: "a.log", Rotation: &RotationConfig{MaxSize: -1}},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "config %d should be rejected", i)
	}
}

// readJSONLines 读取文件中的每一行 JSON 日志
func readJSONLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var logs []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		logs = append(logs, entry)
	}
	require.NoError(t, scanner.Err())
	return logs
}

func fileConfig(t *testing.T, level string) (*Config, string) {
	path := filepath.Join(t.TempDir(), "out.log")
	return &Config{Level: level, Format: "json", Output: path, AddSource: true}, path
}

func testLogLevels(t *testing.T) {
	cfg, path := fileConfig(t, "info")
	logger, err := New(context.Background(), cfg)
	require.NoError(t, err)

	logger.Debug("debug msg")
	logger.Info("info msg", String("k", "v"))
	logger.Warn("warn msg")
	logger.Error("error msg", Err(errors.New("boom")))
	require.NoError(t, logger.Sync())

	logs := readJSONLines(t, path)
	require.Len(t, logs, 3)
	assert.Equal(t, "info msg", logs[0]["msg"])
	assert.Equal(t, "v", logs[0]["k"])
	assert.Equal(t, "warn", logs[1]["level"])
	assert.Equal(t, "boom", logs[2]["error"])
	assert.Contains(t, logs[0]["caller"], "clog_test.go")
}

func testNamespace(t *testing.T) {
	cfg, path := fileConfig(t, "info")
	require.NoError(t, Init(context.Background(), cfg, WithNamespace("root")))

	Namespace("a").Namespace("b").Info("namespace test")
	require.NoError(t, Sync())

	logs := readJSONLines(t, path)
	require.NotEmpty(t, logs)
	assert.Equal(t, "root.a.b", logs[0]["namespace"])
}

func testTraceID(t *testing.T) {
	cfg, path := fileConfig(t, "info")
	require.NoError(t, Init(context.Background(), cfg))

	ctx := WithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", TraceID(ctx))
	WithContext(ctx).Info("traceid test")
	WithContext(ctx).Namespace("sub").Info("namespaced traceid test")
	require.NoError(t, Sync())

	logs := readJSONLines(t, path)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "trace-123", entry["trace_id"])
	}
}

func testAnnotations(t *testing.T) {
	cfg, _ := fileConfig(t, "info")
	cfg.Annotations = true

	var buf bytes.Buffer
	logger, err := New(context.Background(), cfg, WithAnnotationWriter(&buf), WithNamespace("gc"))
	require.NoError(t, err)

	logger.Info("not annotated")
	logger.Warn("failed to delete ref", Ref("refs/tags/build-number-3"), Status(422))
	logger.Error("multi\nline 100%")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "::warning::failed to delete ref: ref=refs/tags/build-number-3, status=422", lines[0])
	assert.Equal(t, "::error::multi%0Aline 100%25", lines[1])
}

func testFatal(t *testing.T) {
	cfg, path := fileConfig(t, "info")
	logger, err := New(context.Background(), cfg)
	require.NoError(t, err)

	exitCode := -1
	SetExitFunc(func(code int) { exitCode = code })
	defer SetExitFunc(os.Exit)

	logger.Fatal("fatal msg")
	assert.Equal(t, 1, exitCode)

	logs := readJSONLines(t, path)
	require.Len(t, logs, 1)
	assert.Equal(t, "fatal", logs[0]["level"])
}

func testRotation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "app.log")
	cfg := &Config{
		Level:  "info",
		Format: "json",
		Output: logFile,
		Rotation: &RotationConfig{
			MaxSize:    1, // MB
			MaxBackups: 2,
			MaxAge:     1,
		},
	}
	logger, err := New(context.Background(), cfg)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		logger.Info(fmt.Sprintf("rotation log %d", i), Int("i", i))
	}
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"rotation log 9"`)
}
