package recorder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "detections.csv")
	content := "timestamp,label,confidence,image_path\n" +
		"2026-04-12T08:30:00Z,bird,0.82,/data/images/a.jpg\n" +
		"2026-04-12T08:30:05Z,bird,0.4,\n" +
		"2026-04-12T08:31:00Z,cat,0.9,/data/images/b.jpg\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := Summarize(path)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if stats.Rows != 3 {
		t.Errorf("Rows = %d, want 3", stats.Rows)
	}
	if stats.PerLabel["bird"] != 2 {
		t.Errorf("PerLabel[bird] = %d, want 2", stats.PerLabel["bird"])
	}
	if stats.PerLabel["cat"] != 1 {
		t.Errorf("PerLabel[cat] = %d, want 1", stats.PerLabel["cat"])
	}
}

func TestSummarizeMissingFile(t *testing.T) {
	stats, err := Summarize(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if stats.Rows != 0 || len(stats.PerLabel) != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}

func TestSummarizeHeaderlessLog(t *testing.T) {
	// A log written by another tool without a header still counts rows.
	dir := t.TempDir()
	path := filepath.Join(dir, "detections.csv")
	content := "2026-04-12T08:30:00Z,bird,0.82,\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := Summarize(path)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if stats.Rows != 1 {
		t.Errorf("Rows = %d, want 1", stats.Rows)
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := DirSize(dir)
	if err != nil {
		t.Fatalf("DirSize() error = %v", err)
	}
	if size != 150 {
		t.Errorf("DirSize() = %d, want 150", size)
	}
}

func TestDirSizeMissingDir(t *testing.T) {
	size, err := DirSize(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("DirSize() error = %v", err)
	}
	if size != 0 {
		t.Errorf("DirSize() = %d, want 0", size)
	}
}
