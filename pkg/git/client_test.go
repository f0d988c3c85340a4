package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx, time.Second)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(tmpDir, DefaultLockName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("Lock file not created")
	}

	// A second acquisition waits and gives up at the timeout.
	if _, err := client.Lock(ctx, 30*time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}

	unlock()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file not removed after unlock")
	}
}

func TestClient_LockWaitsForRelease(t *testing.T) {
	client := NewClient(t.TempDir(), "custom.lock", nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	time.AfterFunc(30*time.Millisecond, unlock)

	unlock2, err := client.Lock(ctx, time.Second)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	unlock2()
}

func TestClient_LockCanceled(t *testing.T) {
	client := NewClient(t.TempDir(), "", nil)
	unlock, err := client.Lock(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Lock(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_InitAndCommit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	ctx := context.Background()

	if client.IsRepo(ctx) {
		t.Fatal("fresh temp dir should not be a repo")
	}
	if err := client.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !client.IsRepo(ctx) {
		t.Fatal("expected a repo after Init")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "a.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := client.Add(ctx, "a.json"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := client.Commit(ctx, "add a"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != "" {
		t.Errorf("expected clean tree, got %q", status)
	}
}
