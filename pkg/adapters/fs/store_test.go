package fs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/git"
)

// setupTestStore creates an initialized store in a temp dir.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(Config{
		Path:        filepath.Join(t.TempDir(), "vault"),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		LockTimeout: time.Second,
	})
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	return store
}

func TestStore_GetSetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, core.KeyPrompts); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, core.KeyPrompts, []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := store.Get(ctx, core.KeyPrompts)
	if err != nil || !ok || string(got) != `[]` {
		t.Fatalf("unexpected Get result %q ok=%v err=%v", got, ok, err)
	}
	if _, err := os.Stat(filepath.Join(store.Path, "promptLibrary.json")); err != nil {
		t.Errorf("expected key file on disk: %v", err)
	}

	if err := store.Delete(ctx, core.KeyPrompts); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, core.KeyPrompts); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, core.KeyPrompts); ok {
		t.Error("expected key to be gone")
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", `a\b`, ".hidden"} {
		if err := store.Set(ctx, key, nil); err == nil {
			t.Errorf("expected Set(%q) to fail", key)
		}
		if _, _, err := store.Get(ctx, key); err == nil {
			t.Errorf("expected Get(%q) to fail", key)
		}
	}
}

func TestStore_MustExist(t *testing.T) {
	store := New(Config{Path: filepath.Join(t.TempDir(), "missing"), MustExist: true})
	if err := store.Initialize(context.Background()); err == nil {
		t.Fatal("expected Initialize to fail for a missing directory")
	}
}

// TestStore_WaitsForLock verifies that writes respect the cross-process lock.
func TestStore_WaitsForLock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	lock := git.NewClient(store.Path, "", nil)
	unlock, err := lock.Lock(ctx, time.Second)
	if err != nil {
		t.Fatalf("manual lock failed: %v", err)
	}
	time.AfterFunc(200*time.Millisecond, unlock)

	start := time.Now()
	if err := store.Set(ctx, core.KeyNotes, []byte(`{}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Set returned too fast (%v), expected to wait for lock", elapsed)
	}
}

func TestStore_LockTimeout(t *testing.T) {
	store := New(Config{Path: t.TempDir(), LockTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	unlock, err := git.NewClient(store.Path, "", nil).Lock(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	if err := store.Set(ctx, core.KeyNotes, []byte(`{}`)); !errors.Is(err, git.ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestStore_LibraryRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	lib := core.NewLibrary(store, core.LibraryConfig{})
	rating := 4
	lib.Set([]core.Prompt{{ID: "a", Title: "A", Content: "c", CreatedAt: 1, Rating: &rating}},
		core.NoteMap{"a": {{NoteID: "n", PromptID: "a", Text: "t"}}})
	if err := lib.Persist(ctx); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	reopened := New(Config{Path: store.Path})
	if err := reopened.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	loaded := core.NewLibrary(reopened, core.LibraryConfig{})
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 1 || len(loaded.Notes()["a"]) != 1 {
		t.Errorf("unexpected library after reopen: %+v %+v", loaded.Prompts(), loaded.Notes())
	}
}

func TestStore_State(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Set(context.Background(), core.KeyNotes, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	state, ok := store.State().(StoreState)
	if !ok {
		t.Fatalf("unexpected state type %T", store.State())
	}
	if state.Writes != 1 || state.Path != store.Path || state.WatcherActive {
		t.Errorf("unexpected state %+v", state)
	}
	if store.ComponentType() != "fs" {
		t.Errorf("unexpected component type %s", store.ComponentType())
	}
}
