package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_FileNotExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	ls, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(ls.Values) != 0 {
		t.Errorf("expected no values, got %d", len(ls.Values))
	}
	if ls.Version != 0 {
		t.Errorf("expected version 0, got %d", ls.Version)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Open must not create the file, stat err = %v", err)
	}
}

func TestOpen_FileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	buf, _ := json.Marshal(map[string]any{
		"values":  map[string]string{KeyToken: "T", KeyUser: `{"id":1}`},
		"version": 5,
	})
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatal(err)
	}

	ls, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if v, ok, _ := ls.Get(KeyToken); !ok || v != "T" {
		t.Errorf("Get(%q) = %q, %v; want T, true", KeyToken, v, ok)
	}
	if ls.Version != 5 {
		t.Errorf("expected version 5, got %d", ls.Version)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPutDeletePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "session.json")
	ls, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := ls.Put(map[string]string{KeyToken: "abc", KeyUser: `{"id":2}`, "other": "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ls.Version == 0 {
		t.Error("expected version to advance after Put")
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _, _ := reopened.Get(KeyUser); v != `{"id":2}` {
		t.Errorf("user after reopen = %q", v)
	}

	if err := ls.Delete(KeyToken, KeyUser, "missing"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	reopened, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := reopened.Get(KeyToken); ok {
		t.Error("token must be gone after Delete")
	}
	if _, ok, _ := reopened.Get(KeyUser); ok {
		t.Error("user must be gone after Delete")
	}
	if v, _, _ := reopened.Get("other"); v != "x" {
		t.Errorf("unrelated key lost: %q", v)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o; want 600", perm)
	}
}

func TestPut_FailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	// The parent "directory" is a regular file, so every write fails.
	ls := &LocalStorage{path: filepath.Join(blocker, "session.json"), Values: map[string]string{KeyToken: "old"}}

	if err := ls.Put(map[string]string{KeyToken: "new"}); err == nil {
		t.Fatal("expected write error")
	}
	if v, _, _ := ls.Get(KeyToken); v != "old" {
		t.Errorf("in-memory value changed on failed write: %q", v)
	}
}
