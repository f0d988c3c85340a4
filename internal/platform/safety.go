package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// DevDirName is the namespace for sandboxed stores under the system temp dir.
const DevDirName = "promptvault-dev"

// IsDevRun reports whether the process was built by `go run` or `go test`.
// Both build binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveStorePath returns the path a store should actually use.
// With forceTemp, paths outside the system temp dir are re-rooted under
// DevDirName so dev runs never touch the user's real library.
func ResolveStorePath(userPath string, forceTemp bool) string {
	if !forceTemp {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	clean := filepath.Clean(userPath)
	if filepath.IsAbs(clean) {
		// Already under temp (t.TempDir() and friends).
		rel, err := filepath.Rel(os.TempDir(), clean)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return clean
		}
	}

	name := filepath.Base(clean)
	if userPath == "" || name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), DevDirName, name)
}
