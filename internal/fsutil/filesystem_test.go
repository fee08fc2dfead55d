package fsutil

import (
	"io"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	fsys := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	part := filepath.Join(dir, "season.part")
	w, err := fsys.Create(part)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	final := filepath.Join(dir, "season.csv.gz")
	if err := fsys.Rename(part, final); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if fsys.Exists(part) {
		t.Error("expected renamed file to be gone")
	}

	matches, err := fsys.Glob(filepath.Join(dir, "*.csv.gz"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != final {
		t.Errorf("unexpected glob result %v", matches)
	}

	f, err := fsys.Open(final)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected %q, got %q", "payload", data)
	}

	if err := fsys.Remove(final); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if fsys.Exists(final) {
		t.Error("expected removed file to be gone")
	}
}

func TestMemoryFileSystem_CreateIsVisibleAfterClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/data/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data, _ := mfs.ReadFile("/data/created.txt"); len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("/data/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
}

func TestMemoryFileSystem_OpenAndStat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a/b.txt", []byte("hello"))

	f, err := mfs.Open("/a/b.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "b.txt" || info.Size() != 5 {
		t.Errorf("unexpected file info name=%q size=%d", info.Name(), info.Size())
	}
	data, _ := io.ReadAll(f)
	if string(data) != "hello" {
		t.Errorf("expected hello, got %q", data)
	}

	if _, err := mfs.Open("/missing"); err == nil {
		t.Error("expected error opening missing file")
	}
}

func TestMemoryFileSystem_RenameRemoveGlob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/d/nfl_2020_pbp.csv.gz", []byte("x"))
	mfs.WriteFile("/d/nfl_2019_pbp.csv.gz", []byte("y"))
	mfs.WriteFile("/d/notes.txt", []byte("z"))

	got, err := mfs.Glob("/d/nfl_*_pbp.csv.gz")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{"/d/nfl_2019_pbp.csv.gz", "/d/nfl_2020_pbp.csv.gz"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Glob = %v, want %v", got, want)
	}

	if err := mfs.Rename("/d/notes.txt", "/d/renamed.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if mfs.Exists("/d/notes.txt") || !mfs.Exists("/d/renamed.txt") {
		t.Error("rename did not move the file")
	}
	if err := mfs.Rename("/d/missing", "/d/other"); err == nil {
		t.Error("expected error renaming missing file")
	}

	if err := mfs.Remove("/d/renamed.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := mfs.Remove("/d/renamed.txt"); err == nil {
		t.Error("expected error removing missing file")
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/plots/2021/tiers", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"/plots", "/plots/2021", "/plots/2021/tiers"} {
		if !mfs.Exists(p) {
			t.Errorf("expected %s to exist", p)
		}
	}
}
