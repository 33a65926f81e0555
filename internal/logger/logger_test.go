package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/canectors/wrangle/internal/logger"
)

// captureJSON swaps the package logger for one writing JSON into a buffer.
func captureJSON(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestSetLevel(t *testing.T) {
	original := logger.Logger
	defer func() { logger.Logger = original }()

	logger.SetLevel(slog.LevelWarn)
	if logger.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
}

func TestExecutionContext(t *testing.T) {
	buf := captureJSON(t, slog.LevelDebug)

	base := logger.ExecutionContext{PipelineName: "patients", Source: "patients.tsv", StageIndex: -1}
	logger.WithExecution(base.InPhase("stage").AtStage(2, "parse", "parse Weight as numeric")).Info("test log")

	entry := decodeLines(t, buf)[0]
	want := map[string]interface{}{
		"pipeline_name": "patients",
		"source":        "patients.tsv",
		"phase":         "stage",
		"stage_type":    "parse",
		"stage":         "parse Weight as numeric",
		"stage_index":   float64(2),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if base.Phase != "" || base.StageType != "" {
		t.Errorf("InPhase/AtStage modified the receiver: %+v", base)
	}
}

func TestExecutionStartEnd(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	ctx := logger.ExecutionContext{PipelineName: "p", StageIndex: -1}

	logger.LogExecutionStart(ctx)
	logger.LogExecutionEnd(ctx, "success", 42, 1500*time.Millisecond)

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["msg"] != "execution started" {
		t.Errorf("msg = %v", entries[0]["msg"])
	}
	end := entries[1]
	if end["msg"] != "execution completed" || end["status"] != "success" || end["row_count"] != float64(42) {
		t.Errorf("unexpected end entry: %v", end)
	}
	if _, ok := end["stage_index"]; ok {
		t.Error("stage_index should be omitted without a stage type")
	}
}

func TestLogStageEnd(t *testing.T) {
	tests := []struct {
		name      string
		failure   *logger.Failure
		wantMsg   string
		wantLevel string
	}{
		{"success", nil, "stage completed", "INFO"},
		{"failure", &logger.Failure{Code: "PARSE_ERROR", Err: errors.New("bad cell")}, "stage failed", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureJSON(t, slog.LevelInfo)
			ctx := logger.ExecutionContext{PipelineName: "p"}.AtStage(1, "sort", "sort Weight desc")
			logger.LogStageEnd(ctx, 7, time.Millisecond, tt.failure)

			entry := decodeLines(t, buf)[0]
			if entry["msg"] != tt.wantMsg || entry["level"] != tt.wantLevel {
				t.Errorf("entry = %v", entry)
			}
			if entry["row_count"] != float64(7) {
				t.Errorf("row_count = %v", entry["row_count"])
			}
			if tt.failure != nil && (entry["error_code"] != "PARSE_ERROR" || entry["error"] != "bad cell") {
				t.Errorf("failure fields = %v", entry)
			}
		})
	}
}

func TestLogStageStartIsDebug(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	logger.LogStageStart(logger.ExecutionContext{PipelineName: "p", Phase: "source"})
	if buf.Len() != 0 {
		t.Errorf("stage start should not log at info level: %s", buf.String())
	}
}

func TestLogMetrics(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	logger.LogMetrics(logger.ExecutionContext{PipelineName: "p"}, logger.ExecutionMetrics{
		TotalDuration: time.Second,
		RowsIn:        10,
		RowsOut:       4,
		StageCount:    3,
	})
	entry := decodeLines(t, buf)[0]
	for _, key := range []string{"total_duration", "load_duration", "transform_duration", "write_duration", "rows_in", "rows_out", "stage_count"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("missing field %s", key)
		}
	}
	if entry["rows_per_second"] != float64(10) {
		t.Errorf("rows_per_second = %v", entry["rows_per_second"])
	}
}

func TestRowsPerSecond(t *testing.T) {
	tests := []struct {
		m    logger.ExecutionMetrics
		want float64
	}{
		{logger.ExecutionMetrics{RowsIn: 10, TotalDuration: 2 * time.Second}, 5},
		{logger.ExecutionMetrics{RowsIn: 10}, 0},
		{logger.ExecutionMetrics{TotalDuration: time.Second}, 0},
	}
	for _, tt := range tests {
		if got := tt.m.RowsPerSecond(); got != tt.want {
			t.Errorf("RowsPerSecond(%+v) = %v, want %v", tt.m, got, tt.want)
		}
	}
}

func TestLogError(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	inner := errors.New("invalid syntax")
	err := fmt.Errorf("stage 1: %w", inner)

	logger.LogError("stage failed", logger.ErrorContext{
		ExecutionContext: logger.ExecutionContext{PipelineName: "p", Phase: "stage"}.AtStage(1, "parse", "parse Weight"),
		Code:             "PARSE_ERROR",
		Err:              err,
		Column:           "Weight",
		Row:              3,
	})

	entry := decodeLines(t, buf)[0]
	if entry["column"] != "Weight" || entry["row"] != float64(3) {
		t.Errorf("cell location missing: %v", entry)
	}
	if entry["stage_type"] != "parse" || entry["stage_index"] != float64(1) {
		t.Errorf("stage missing: %v", entry)
	}
	if entry["error_chain"] != "stage 1: invalid syntax -> invalid syntax" {
		t.Errorf("error_chain = %v", entry["error_chain"])
	}
}

func TestLogErrorMinimalContext(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	logger.LogError("boom", logger.ErrorContext{Row: -1, Err: errors.New("flat")})
	entry := decodeLines(t, buf)[0]
	for _, key := range []string{"pipeline_name", "row", "column", "stage_index", "error_chain"} {
		if _, ok := entry[key]; ok {
			t.Errorf("unexpected field %s", key)
		}
	}
	if entry["error"] != "flat" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelDebug}))

	log.Info("stage completed",
		slog.String("pipeline_name", "bmi"),
		slog.String("stage", "sort Weight desc"),
		slog.Duration("duration", 12*time.Millisecond),
	)
	log.Warn("careful")
	log.Error("broken", "rows_per_second", 12.345)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `✓ bmi: stage completed stage="sort Weight desc" duration=12ms`) {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "⚠ careful") || !strings.Contains(lines[2], "✗ broken rows_per_second=12.3") {
		t.Errorf("lines = %q", lines[1:])
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("colors should be off")
	}
}

func TestHumanHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHumanHandler(&buf, nil)).With("pipeline_name", "p").WithGroup("stats")
	log.Info("hello", "rows", 3)
	log.Debug("hidden")

	if got := buf.String(); !strings.HasSuffix(got, " ℹ p: hello stats.rows=3\n") {
		t.Errorf("output = %q", got)
	}
}

func TestHumanHandlerTruncatesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHumanHandler(&buf, nil))
	log.Info("many", "a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6, "g", 7, "h", 8)
	if !strings.Contains(buf.String(), "f=6 (+2 more)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1.5m"},
	}
	for _, tt := range tests {
		if got := logger.FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.OutputFormat
		wantErr bool
	}{
		{"", logger.FormatJSON, false},
		{"json", logger.FormatJSON, false},
		{"HUMAN", logger.FormatHuman, false},
		{"text", logger.FormatHuman, false},
		{"xml", logger.FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := logger.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestSetOutputAndFormat(t *testing.T) {
	original := logger.Logger
	var buf bytes.Buffer
	prev := logger.SetOutput(&buf, slog.LevelInfo, logger.FormatHuman)
	defer func() {
		logger.SetOutput(prev, slog.LevelInfo, logger.FormatJSON)
		logger.Logger = original
	}()

	logger.Info("execution completed", "rows", 2)
	if !strings.Contains(buf.String(), "✓ execution completed rows=2") {
		t.Errorf("human output = %q", buf.String())
	}
}

func TestSetLogFile(t *testing.T) {
	original := logger.Logger
	var console bytes.Buffer
	prev := logger.SetOutput(&console, slog.LevelInfo, logger.FormatJSON)
	defer func() {
		logger.CloseLogFile()
		logger.SetOutput(prev, slog.LevelInfo, logger.FormatJSON)
		logger.Logger = original
	}()

	path := filepath.Join(t.TempDir(), "wrangle.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatHuman); err != nil {
		t.Fatalf("SetLogFile() error = %v", err)
	}
	logger.Info("written twice", "k", "v")
	logger.CloseLogFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file log is not JSON: %q", data)
	}
	if entry["msg"] != "written twice" {
		t.Errorf("file entry = %v", entry)
	}
	if !strings.Contains(console.String(), "written twice k=v") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestSetLogFileInvalidPath(t *testing.T) {
	err := logger.SetLogFile(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), slog.LevelInfo, logger.FormatJSON)
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
