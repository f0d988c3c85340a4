package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLeftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), TempFilePrefix) {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestWriteFile(t *testing.T) {
	t.Run("Creates Key File", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "promptLibrary.json")

		if err := WriteFile(filename, []byte(`[]`), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != `[]` {
			t.Errorf("Expected '[]', got '%s'", got)
		}
		if left := tempLeftovers(t, dir); len(left) > 0 {
			t.Errorf("temp files left behind: %v", left)
		}
	})

	t.Run("Replaces Existing Bytes", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "promptNotes.json")
		if err := os.WriteFile(filename, []byte(`{"old":[]}`), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		if err := WriteFile(filename, []byte(`{}`), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		got, _ := os.ReadFile(filename)
		if string(got) != `{}` {
			t.Errorf("Expected '{}', got '%s'", got)
		}
	})

	t.Run("Applies Permissions", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), JournalName)
		if err := WriteFile(filename, []byte("{}"), 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		info, err := os.Stat(filename)
		if err != nil {
			t.Fatal(err)
		}
		// Windows only reports the read-only bit.
		t.Logf("File permissions: %v", info.Mode())
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "missing", "promptLibrary.json")
		if err := WriteFile(filename, []byte("[]"), 0644); err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})

	t.Run("Cleans Up After Failed Rename", func(t *testing.T) {
		dir := t.TempDir()
		// A directory in the way makes the rename fail.
		target := filepath.Join(dir, "promptLibrary.json")
		if err := os.Mkdir(target, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(target, "x"), nil, 0644); err != nil {
			t.Fatal(err)
		}

		if err := WriteFile(target, []byte("[]"), 0644); err == nil {
			t.Fatal("Expected rename over a non-empty directory to fail")
		}
		if left := tempLeftovers(t, dir); len(left) > 0 {
			t.Errorf("temp files left behind: %v", left)
		}
	})
}

func TestCleanTemp(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{TempFilePrefix + "1", TempFilePrefix + "2", "promptLibrary.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanTemp(dir)
	if err != nil {
		t.Fatalf("CleanTemp failed: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("expected 2 removed, got %v", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "promptLibrary.json")); err != nil {
		t.Errorf("key file removed: %v", err)
	}
}
