// Package storagetest opens throwaway SQLite stores for tests.
package storagetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
	"github.com/jkaninda/bureau/internal/storage"
	"github.com/jkaninda/bureau/internal/storage/sqlite"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Open returns a migrated SQLite store in a temp dir, closed at test cleanup.
func Open(t testing.TB) storage.Store {
	t.Helper()
	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "bureau.db")}, Logger())
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Company creates an active company and returns its id.
func Company(t testing.TB, store storage.Store, name string) uuid.UUID {
	t.Helper()
	c := &domain.Company{Name: name, Slug: name + "-" + uuid.NewString()[:8], Active: true}
	if err := store.Companies().Create(context.Background(), c); err != nil {
		t.Fatalf("creating company %s: %v", name, err)
	}
	return c.ID
}
