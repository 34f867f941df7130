package patterns

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("file does not exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nonexistent.txt"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected fs.ErrNotExist, got %v", err)
		}
	})

	t.Run("trims and skips blank lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sha1.txt")
		content := "\ufeff  aaa  \n\n\tbbb\r\n   \nccc"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		want := []string{"aaa", "bbb", "ccc"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Load = %q, want %q", got, want)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no lines, got %q", got)
		}
	})

	t.Run("directory is an error", func(t *testing.T) {
		if _, err := Load(t.TempDir()); err == nil {
			t.Fatal("expected error when loading a directory")
		}
	})
}

func TestSave(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "sha1.txt")
		if err := Save(path, []string{"a", "b"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(b) != "a\nb\n" {
			t.Fatalf("content = %q, want %q", b, "a\nb\n")
		}
	})

	t.Run("replaces existing file and keeps permissions", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "gcid.txt")
		if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := Save(path, []string{"new"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"new"}) {
			t.Fatalf("Load after Save = %q", got)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("permissions = %o, want 600", perm)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("temp file left behind: %v", entries)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "name.txt")
		rows := []string{"a.log", "b.log", "Thumbs.db"}
		if err := Save(path, rows); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !reflect.DeepEqual(got, rows) {
			t.Fatalf("round trip = %q, want %q", got, rows)
		}
	})
}
