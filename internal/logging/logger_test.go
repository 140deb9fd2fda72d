package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsync/internal/config"
	"reelsync/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelsync.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Fatalf("expected log file to contain message, got %q", content)
	}
}

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	scoped := logging.WithComponent(logger, "syncer")
	scoped.Info("page fetched", logging.Int("offset", 2000), logging.String("band", "2016"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO syncer: page fetched") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "offset=2000") || !strings.Contains(line, "band=2016") {
		t.Fatalf("expected key=value fields, got %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "suppressed") {
		t.Fatalf("expected info record to be filtered, got %q", content)
	}
	if !strings.Contains(string(content), "kept") {
		t.Fatalf("expected warn record, got %q", content)
	}
}

func TestJSONFormatUsesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "log.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("attention")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, `"level":"warn"`) {
		t.Fatalf("expected lowercase level, got %q", line)
	}
	if !strings.Contains(line, `"ts":"`) {
		t.Fatalf("expected ts key, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithComponentNilLogger(t *testing.T) {
	logger := logging.WithComponent(nil, "matcher")
	if logger == nil {
		t.Fatal("expected usable logger")
	}
	logger.Info("ignored")
}
