package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	fw, err := NewFileWriter(FileConfig{Path: path, MaxSize: 4096, MaxFiles: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	recs := []Record{
		{Time: now, Session: "s1", Outcome: "ok", Line: "help"},
		{Time: now, Session: "s2", Outcome: "unknown", Line: "bogus arg"},
		{Time: now, Session: "api", Outcome: "too_many_args", Line: "exit 1"},
	}
	for _, rec := range recs {
		if err := fw.Write(rec); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		`[s1] ok "help"`,
		`[s2] unknown "bogus arg"`,
		`[api] too_many_args "exit 1"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in %q", want, content)
		}
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "2026-08-30T12:00:00.000 ") {
			t.Errorf("line missing timestamp: %q", line)
		}
	}
}

func TestFileWriter_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	// Small maxSize to trigger rotation quickly.
	fw, err := NewFileWriter(FileConfig{Path: path, MaxSize: 50, MaxFiles: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	for i := 0; i < 10; i++ {
		fw.Write(Record{Session: "s1", Outcome: "ok", Line: "rotation test line"})
	}

	if _, err := os.Stat(path + ".1"); os.IsNotExist(err) {
		t.Error("expected rotated file .1 to exist")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= 100 {
		t.Errorf("current file too large after rotation: %d bytes", info.Size())
	}
}

func TestFileWriter_RequiresPath(t *testing.T) {
	if _, err := NewFileWriter(FileConfig{}); err == nil {
		t.Fatal("NewFileWriter without path should fail")
	}
}

func TestFileWriter_CloseIdempotent(t *testing.T) {
	fw, err := NewFileWriter(FileConfig{Path: filepath.Join(t.TempDir(), "audit.log")})
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if err := fw.Write(Record{Line: "late"}); err == nil {
		t.Error("Write after Close should fail")
	}
}
