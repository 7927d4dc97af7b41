package fetcher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanq16/rangefetch/internal/utils"
)

func TestCompletionStoreFresh(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	s, err := OpenCompletionStore(dest, "http://example/file", 3*mib, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	if s.Resumed() {
		t.Fatal("fresh store reported as resumed")
	}
	if s.Len() != 3 || s.Count() != 0 {
		t.Fatalf("got %d/%d complete, want 0/3", s.Count(), s.Len())
	}
	if _, err := os.Stat(utils.ManifestPath(dest)); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if s.Session() == "" {
		t.Fatal("missing session id")
	}
}

func TestCompletionStoreSaveAndResume(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	s, err := OpenCompletionStore(dest, "http://example/file", 3*mib, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	if err := s.MarkComplete(1); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	data, err := os.ReadFile(utils.MetaPath(dest))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if !bytes.Equal(data, []byte{0, 1, 0}) {
		t.Fatalf("meta bytes: got %v, want [0 1 0]", data)
	}

	again, err := OpenCompletionStore(dest, "http://example/file", 3*mib, mib)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !again.Resumed() {
		t.Fatal("expected resumed store")
	}
	if again.IsComplete(0) || !again.IsComplete(1) || again.IsComplete(2) {
		t.Fatalf("flags: got %v, want [0 1 0]", again.Snapshot())
	}
	if again.Session() != s.Session() {
		t.Fatalf("session changed: %s -> %s", s.Session(), again.Session())
	}
}

func TestCompletionStoreLegacySidecar(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	legacy := make([]byte, 2048)
	legacy[0] = 1
	legacy[2] = 1
	legacy[10] = 1 // beyond this object's ranges
	if err := os.WriteFile(utils.MetaPath(dest), legacy, 0644); err != nil {
		t.Fatalf("write legacy meta: %v", err)
	}

	s, err := OpenCompletionStore(dest, "http://example/file", 2621440, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	if got := s.Snapshot(); !bytes.Equal(got, []byte{1, 0, 1}) {
		t.Fatalf("flags: got %v, want [1 0 1]", got)
	}
}

func TestCompletionStoreLayoutChange(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	s, err := OpenCompletionStore(dest, "http://example/file", 3*mib, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.MarkComplete(i); err != nil {
			t.Fatalf("MarkComplete(%d): %v", i, err)
		}
	}

	// Same destination, object grew.
	changed, err := OpenCompletionStore(dest, "http://example/file", 4*mib, mib)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if changed.Resumed() || changed.Count() != 0 {
		t.Fatalf("expected fresh store, got %d complete", changed.Count())
	}
	data, err := os.ReadFile(utils.MetaPath(dest))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if !bytes.Equal(data, make([]byte, 4)) {
		t.Fatalf("stale bitmap left on disk: %v", data)
	}
	if changed.Session() == s.Session() {
		t.Fatal("expected a new session for a different object")
	}
}

func TestCompletionStoreBounds(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	s, err := OpenCompletionStore(dest, "http://example/file", mib, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	if err := s.MarkComplete(1); err == nil {
		t.Fatal("expected out of bounds error")
	}
	if s.IsComplete(-1) || s.IsComplete(5) {
		t.Fatal("out of range index reported complete")
	}
}

func TestCompletionStoreRemove(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	s, err := OpenCompletionStore(dest, "http://example/file", mib, mib)
	if err != nil {
		t.Fatalf("OpenCompletionStore: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	for _, path := range []string{utils.MetaPath(dest), utils.ManifestPath(dest)} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s still present", path)
		}
	}
}
