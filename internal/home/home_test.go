package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-lumina")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-lumina" {
			t.Errorf("expected path /tmp/test-lumina, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-lumina")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DataPath", dir.DataPath(), "/tmp/test-lumina/data"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-lumina/config.yaml"},
		{"SourcePath", dir.SourcePath("b1"), "/tmp/test-lumina/books/b1/source.pdf"},
		{"PartAudioPath", dir.PartAudioPath("b1", "chapter-1", 2, "wav"), "/tmp/test-lumina/books/b1/audio/chapter-1/part_0002.wav"},
		{"StagingDir", dir.StagingDir("b1", "chapter-1", "r1"), "/tmp/test-lumina/books/b1/staging/chapter-1-r1"},
		{"unsafe chapter id", dir.ChapterAudioDir("b1", "../../etc"), "/tmp/test-lumina/books/b1/audio/etc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"chapter-1":    "chapter-1",
		"Preface & I":  "Preface-I",
		"..":           "_",
		"":             "_",
		"a/b\\c":       "a-b-c",
		"capítulo uno": "cap-tulo-uno",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	luminaDir := filepath.Join(tmpDir, "lumina-test")

	dir, err := New(luminaDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.DataPath()); os.IsNotExist(err) {
		t.Error("data directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.BooksDir()); os.IsNotExist(err) {
		t.Error("books directory should exist after EnsureExists")
	}
}

func TestDir_PublishChapterAudio(t *testing.T) {
	dir, _ := New(t.TempDir())

	writeStaging := func(run, content string) string {
		staging := dir.StagingDir("b1", "c1", run)
		if err := os.MkdirAll(staging, 0o755); err != nil {
			t.Fatalf("mkdir staging: %v", err)
		}
		if err := os.WriteFile(filepath.Join(staging, PartFileName(0, "wav")), []byte(content), 0o644); err != nil {
			t.Fatalf("write part: %v", err)
		}
		return staging
	}

	publish := func(run, content string) *AudioSwap {
		t.Helper()
		swap, err := dir.PublishChapterAudio("b1", "c1", writeStaging(run, content))
		if err != nil {
			t.Fatalf("publish %s: %v", run, err)
		}
		return swap
	}

	if err := publish("r1", "first").Commit(); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	swap := publish("r2", "second")
	if _, err := os.Stat(dir.ChapterAudioDir("b1", "c1") + ".old"); err != nil {
		t.Errorf("expected previous audio kept until commit: %v", err)
	}
	if err := swap.Commit(); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	data, err := os.ReadFile(dir.PartAudioPath("b1", "c1", 0, "wav"))
	if err != nil {
		t.Fatalf("read published part: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected second run audio, got %q", data)
	}
	if _, err := os.Stat(dir.ChapterAudioDir("b1", "c1") + ".old"); !os.IsNotExist(err) {
		t.Error("expected previous audio to be cleaned up")
	}

	// A rolled back publish leaves the committed audio in place
	staging := dir.StagingDir("b1", "c1", "r3")
	swap = publish("r3", "third")
	if err := swap.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	data, err = os.ReadFile(dir.PartAudioPath("b1", "c1", 0, "wav"))
	if err != nil || string(data) != "second" {
		t.Errorf("after rollback part = %q, %v; want second", data, err)
	}
	if _, err := os.Stat(staging); err != nil {
		t.Errorf("expected rolled back audio returned to staging: %v", err)
	}

	if err := dir.RemoveBook("b1"); err != nil {
		t.Fatalf("RemoveBook: %v", err)
	}
	if _, err := os.Stat(dir.BookDir("b1")); !os.IsNotExist(err) {
		t.Error("expected book dir to be removed")
	}
}
