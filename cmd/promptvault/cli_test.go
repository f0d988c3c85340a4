package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildBinary builds the promptvault binary into dir and returns its path.
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping CLI build in short mode")
	}
	bin := filepath.Join(dir, "promptvault.exe")
	build := exec.Command("go", "build", "-o", bin, ".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build promptvault: %v\n%s", err, string(out))
	}
	return bin
}

func runCmd(t *testing.T, dir string, stdin io.Reader, bin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+dir)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("promptvault %s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout.String(), stderr.String())
	}
	return stdout.String()
}

func TestCLI_Workflow(t *testing.T) {
	dir := t.TempDir()
	bin := buildBinary(t, dir)
	store := filepath.Join(dir, "library")

	run := func(stdin io.Reader, args ...string) string {
		return runCmd(t, dir, stdin, bin, append([]string{"--path", store}, args...)...)
	}

	run(nil, "init")
	out := run(nil, "add", "--title", "Greeting", "--content", "Say hello to the user", "--model", "gpt-4")
	if !strings.Contains(out, "Prompt 'Greeting' added") {
		t.Fatalf("unexpected add output: %s", out)
	}
	run(strings.NewReader("Explain the diff below\n"), "add", "-t", "Review", "-c", "-", "-m", "claude")

	var prompts []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(run(nil, "list", "--json")), &prompts); err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 2 || prompts[0].Title != "Greeting" || prompts[1].Title != "Review" {
		t.Fatalf("unexpected prompts: %+v", prompts)
	}
	greeting := prompts[0].ID

	run(nil, "rate", greeting[:8], "4")
	run(nil, "note", "add", greeting, "Friendly", "tone")

	snap := filepath.Join(dir, "snap.json")
	run(nil, "export", "-o", snap)

	t.Run("Replace requires confirmation", func(t *testing.T) {
		cmd := exec.Command(bin, "--path", store, "import", "--mode", "replace", snap)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "HOME="+dir)
		if err := cmd.Run(); err == nil {
			t.Fatal("expected replace without --yes to fail when stdin is not a terminal")
		}
	})

	t.Run("Merge own export keeps everything", func(t *testing.T) {
		out := run(nil, "import", "--on-conflict", "keep", snap)
		if !strings.Contains(out, "Merged: 0 added, 0 overwritten, 2 kept") {
			t.Errorf("unexpected merge output: %s", out)
		}
	})

	t.Run("Merge into a second library", func(t *testing.T) {
		other := filepath.Join(dir, "other.db")
		out := runCmd(t, dir, nil, bin, "--adapter", "sqlite", "--path", other, "import", "--on-conflict", "overwrite", snap)
		if !strings.Contains(out, "Merged: 2 added") {
			t.Errorf("unexpected merge output: %s", out)
		}
		notes := runCmd(t, dir, nil, bin, "--adapter", "sqlite", "--path", other, "note", "list", greeting)
		if !strings.Contains(notes, "Friendly tone") {
			t.Errorf("expected imported note, got: %s", notes)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		out := run(nil, "stats", "--json")
		var st struct {
			TotalPrompts  int     `json:"totalPrompts"`
			AverageRating float64 `json:"averageRating"`
			TotalNotes    int     `json:"totalNotes"`
		}
		if err := json.Unmarshal([]byte(out), &st); err != nil {
			t.Fatal(err)
		}
		if st.TotalPrompts != 2 || st.AverageRating != 2 || st.TotalNotes != 1 {
			t.Errorf("unexpected stats: %+v", st)
		}
	})

	t.Run("Backup", func(t *testing.T) {
		backups := filepath.Join(dir, "backups")
		out := run(nil, "backup", "--dir", backups, "--keep", "1")
		if !strings.Contains(out, "Backup written to") {
			t.Errorf("unexpected backup output: %s", out)
		}
		files, _ := filepath.Glob(filepath.Join(backups, "prompt-library-export-*.json"))
		if len(files) != 1 {
			t.Errorf("expected 1 backup, got %d", len(files))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		run(nil, "delete", greeting)
		out := run(nil, "list")
		if strings.Contains(out, "Greeting") {
			t.Errorf("deleted prompt still listed: %s", out)
		}
	})
}
