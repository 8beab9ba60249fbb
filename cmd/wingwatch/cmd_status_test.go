package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wingwatch/internal/models"
	"wingwatch/internal/repository/sqlite"
)

// setTestEnv points every file the CLI touches into dir and disables the
// event index.
func setTestEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("PID_PATH", filepath.Join(dir, "wingwatch.pid"))
	t.Setenv("DETECTIONS_LOG", filepath.Join(dir, "detections.csv"))
	t.Setenv("IMAGE_DIR", filepath.Join(dir, "images"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DB_PATH", "")
}

func writeDetectionsCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"timestamp", "label", "confidence", "image_path"})
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write detections log: %v", err)
	}
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return buf.String()
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, dir)

	writeDetectionsCSV(t, filepath.Join(dir, "detections.csv"), [][]string{
		{"2026-03-14T08:00:00Z", "bird", "0.82", "/tmp/a.jpg"},
		{"2026-03-14T09:00:00Z", "cat", "0.55", ""},
		{"2026-03-14T10:00:00Z", "bird", "0.91", "/tmp/b.jpg"},
	})

	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(imgDir, "a.jpg"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	got := runCommand(t, "status")

	for _, want := range []string{
		"pipeline stopped",
		"Detections: 3 recorded",
		"bird",
		"cat",
		"2.0 KiB",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Index:") {
		t.Errorf("status output mentions the index with DB_PATH empty:\n%s", got)
	}
}

func TestStatusCommandRunningProcess(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, dir)

	if err := WritePIDFile(filepath.Join(dir, "wingwatch.pid"), os.Getpid()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got := runCommand(t, "status")

	if !strings.Contains(got, "pipeline running (PID") {
		t.Errorf("status output missing running state:\n%s", got)
	}
}

func TestStatusCommandWithIndex(t *testing.T) {
	dir := t.TempDir()
	setTestEnv(t, dir)
	dbPath := filepath.Join(dir, "events.db")
	t.Setenv("DB_PATH", dbPath)

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	repo := sqlite.NewEventRepository(db)
	for _, label := range []string{"bird", "bird"} {
		if _, err := repo.Insert(&models.Event{
			RunID:      "run-a",
			Timestamp:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
			Label:      label,
			Confidence: 0.9,
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := runCommand(t, "status")

	if !strings.Contains(got, "Index: 2 events") {
		t.Errorf("status output missing index stats:\n%s", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
