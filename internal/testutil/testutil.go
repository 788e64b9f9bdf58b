// Package testutil provides shared test helpers for setting up vaults and
// the rename service stack.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/pastename/internal/journal"
	"github.com/starford/pastename/internal/notify"
	"github.com/starford/pastename/internal/paste"
	"github.com/starford/pastename/internal/renamer"
	"github.com/starford/pastename/internal/settings"
	"github.com/starford/pastename/internal/storage"
	"github.com/starford/pastename/internal/workspace"
)

// Now is the fixed clock used by Env: 2022-10-26 17:27:52 UTC.
var Now = time.Date(2022, 10, 26, 17, 27, 52, 0, time.UTC)

// TestJournal creates a temporary SQLite journal that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pastename-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Env is a fully wired rename stack over a temporary vault.
type Env struct {
	VaultDir  string
	Store     *storage.FS
	Settings  *settings.Store
	Workspace *workspace.Service
	Journal   *journal.DB
	Renamer   *renamer.Service
	Paste     *paste.Saver
}

// NewEnv wires every service the way the daemon does, with the clock pinned
// to Now, link style read from the vault (wikilinks unless configured), and
// notices going to the journal.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	vaultDir, store := TestVault(t)

	st, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	db := TestJournal(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ws := workspace.NewService(store)
	links := workspace.NewLinkStyleResolver(store, workspace.LinkModeAuto, "", logger)
	svc := renamer.New(ws, store, st, links, notify.Journal(db, logger),
		renamer.WithClock(func() time.Time { return Now }),
		renamer.WithLogger(logger))

	return &Env{
		VaultDir:  vaultDir,
		Store:     store,
		Settings:  st,
		Workspace: ws,
		Journal:   db,
		Renamer:   svc,
		Paste:     paste.NewSaver(store, "attachments", paste.WithEditor(ws, links), paste.WithLogger(logger)),
	}
}

// Write puts a file into the vault, failing the test on error.
func (e *Env) Write(t *testing.T, rel, content string) {
	t.Helper()
	if err := e.Store.Write(rel, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// Read returns a vault file's content, failing the test on error.
func (e *Env) Read(t *testing.T, rel string) string {
	t.Helper()
	data, err := e.Store.Read(rel)
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}
