package filetree

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mercator-hq/custodian/pkg/retention/storage"
)

func testIndex(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()

	a, err := idx.ID(ctx, "/a")
	if err != nil {
		t.Fatalf("ID() failed: %v", err)
	}
	again, _ := idx.ID(ctx, "a/")
	if again != a {
		t.Errorf("Expected cleaned path to reuse id %d, got %d", a, again)
	}
	child, _ := idx.ID(ctx, "/a/b")
	sibling, _ := idx.ID(ctx, "/ab")

	p, err := idx.Path(ctx, child)
	if err != nil || p != "/a/b" {
		t.Errorf("Path() = %q, %v", p, err)
	}

	if err := idx.Forget(ctx, "/a"); err != nil {
		t.Fatalf("Forget() failed: %v", err)
	}
	if _, err := idx.Path(ctx, child); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected descendant to be forgotten, got %v", err)
	}
	if _, err := idx.Path(ctx, sibling); err != nil {
		t.Errorf("Expected sibling with shared prefix to survive, got %v", err)
	}
}

func TestMemoryIndex(t *testing.T) {
	testIndex(t, NewMemoryIndex())
}

func TestSQLIndex(t *testing.T) {
	store, err := storage.Open(&storage.Config{
		Driver:      "sqlite3",
		DSN:         filepath.Join(t.TempDir(), "index.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	testIndex(t, NewSQLIndex(store.DB()))
}
