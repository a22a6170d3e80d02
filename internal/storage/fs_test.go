package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte(`{"version":"3.0.0"}`)
	if err := s.Write("a.diagram.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a.diagram.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("context/sub/deep.diagram.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Exists("context/sub/deep.diagram.json") {
		t.Error("deep file missing after write")
	}
}

func TestReadNotFound(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("ghost.diagram.json")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateConflictsOnExisting(t *testing.T) {
	s := tempVault(t)
	if err := s.Create("new.diagram.json", []byte("{}")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("new.diagram.json", []byte("{}"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict on second create, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.json", []byte("x"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("del.json") {
		t.Error("file still exists after delete")
	}
	if err := s.Delete("del.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRename(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.diagram.json", []byte("data"))
	if err := s.Rename("old.diagram.json", "sub/new.diagram.json"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("sub/new.diagram.json")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if s.Exists("old.diagram.json") {
		t.Error("old path should not exist")
	}
}

func TestRenameMissingSource(t *testing.T) {
	s := tempVault(t)
	if err := s.Rename("nope.json", "other.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("../outside.json", []byte("x")); err == nil {
		t.Error("traversal write accepted")
	}
	if _, err := s.Read("../../etc/passwd"); err == nil {
		t.Error("traversal read accepted")
	}
	if err := s.Write("/abs.json", []byte("x")); err == nil {
		t.Error("absolute path accepted")
	}
}

func TestListFiltersJSON(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.diagram.json", []byte("{}"))
	_ = s.Write("graph.json", []byte("{}"))
	_ = s.Write("notes.txt", []byte("not json"))
	_ = s.Write("sub/b.diagram.json", []byte("{}"))

	all, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 json files, got %d", len(all))
	}
	for _, fi := range all {
		if fi.Checksum == "" {
			t.Errorf("missing checksum for %s", fi.Path)
		}
	}

	diagrams, err := s.ListDiagrams()
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if len(diagrams) != 2 {
		t.Errorf("expected 2 diagram documents, got %d", len(diagrams))
	}
}

func TestSiblingGraphPath(t *testing.T) {
	if got := SiblingGraphPath("a/b.diagram.json"); got != "a/b.graph.json" {
		t.Errorf("SiblingGraphPath = %q", got)
	}
	if got := SiblingGraphPath("plain.json"); got != "plain.json.graph.json" {
		t.Errorf("SiblingGraphPath fallback = %q", got)
	}
}

func TestPathLockerSerializesPerPath(t *testing.T) {
	l := NewPathLocker()

	var mu sync.Mutex
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.With("graph.json", func() error {
				mu.Lock()
				c := counter
				mu.Unlock()
				// Without serialization this read-modify-write loses updates.
				mu.Lock()
				counter = c + 1
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("lost updates: counter = %d, want 50", counter)
	}
}
