package logging_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"traject/internal/logging"
	"traject/internal/testsupport"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("recorder initialized")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "traject.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "recorder initialized") {
		t.Fatalf("log file missing message: %q", content)
	}
}

func TestJSONFormatEmitsStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("info", "json", &buf)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "saver").Info("episode saved",
		logging.Int64(logging.FieldEpisodeIndex, 7),
	)

	line := strings.TrimSpace(buf.String())

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	if entry[logging.FieldComponent] != "saver" {
		t.Fatalf("missing component field: %v", entry)
	}
	if entry[logging.FieldEpisodeIndex] != float64(7) {
		t.Fatalf("missing episode index field: %v", entry)
	}
}

func TestDebugLevelEnablesDebugRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("debug", "console", &buf)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("queue depth sampled")

	if !strings.Contains(buf.String(), "queue depth sampled") {
		t.Fatalf("debug record missing: %q", buf.String())
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	if _, err := logging.New("info", "xml", io.Discard); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
