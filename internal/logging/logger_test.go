package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardmint/internal/config"
	"cardmint/internal/logging"
	"cardmint/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (logPath string, opts logging.Options) {
	t.Helper()
	logPath = filepath.Join(t.TempDir(), "test.log")
	return logPath, logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.ToFile = true

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "cardmint.log"))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without source")
	logger.Debug("suppressed")

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
	if strings.Contains(content, "suppressed") {
		t.Fatalf("debug line should be filtered at info level, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndStage(t *testing.T) {
	logPath, opts := newFileLogger(t, "console", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithStage(context.Background(), "vision")
	ctx = services.WithRunID(ctx, "01RUN")
	log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline"))
	log.Info("stage started", logging.String("image_url", "https://i.example/a.jpg"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO [vision] pipeline: stage started") {
		t.Fatalf("unexpected console header: %q", content)
	}
	if !strings.Contains(content, "run_id=01RUN") || !strings.Contains(content, "image_url=https://i.example/a.jpg") {
		t.Fatalf("expected fields in console output: %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath, opts := newFileLogger(t, "json", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "01RUN")
	ctx = services.WithStage(ctx, "catalog")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("resolved")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["run_id"] != "01RUN" || entry["stage"] != "catalog" || entry["correlation_id"] != "req-1" {
		t.Fatalf("unexpected context fields: %#v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath, opts := newFileLogger(t, "json", "info")
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "token type orphaned", "mint_orphaned",
		logging.String(logging.FieldErrorHint, "delete the token type manually"),
	)

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldEventType] != "mint_orphaned" {
		t.Fatalf("event_type = %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] != "delete the token type manually" {
		t.Fatalf("error_hint should keep caller value, got %v", entry[logging.FieldErrorHint])
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact, got %#v", entry)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.ErrorWithContext(nil, "ignored", "ignored")
}
