package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var libraryPathRe = regexp.MustCompile(`(?i)"path"\s+"([^"]*)"`)

// LibraryRoots expands a Steam installation directory into the manifest roots
// of every library folder it knows about. The default <steamRoot>/steamapps comes
// first; additional libraries are read from steamapps/libraryfolders.vdf.
// A missing or unreadable vdf yields only the default root.
func LibraryRoots(steamRoot string) []string {
	steamRoot = strings.TrimSpace(steamRoot)
	if steamRoot == "" {
		return nil
	}
	apps := filepath.Join(steamRoot, "steamapps")
	roots := []string{apps}
	seen := map[string]struct{}{filepath.Clean(apps): {}}

	b, err := os.ReadFile(filepath.Join(apps, "libraryfolders.vdf"))
	if err != nil {
		return roots
	}
	for _, m := range libraryPathRe.FindAllSubmatch(b, -1) {
		// vdf escapes backslashes in Windows paths
		p := strings.ReplaceAll(string(m[1]), `\\`, `\`)
		if strings.TrimSpace(p) == "" {
			continue
		}
		r := filepath.Clean(filepath.Join(p, "steamapps"))
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roots = append(roots, r)
	}
	return roots
}

// DefaultSteamRoot returns the usual Steam installation directory for the
// current platform, or "" when the home directory cannot be resolved.
func DefaultSteamRoot() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files (x86)\Steam`
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Steam")
	}
	return filepath.Join(home, ".steam", "steam")
}

// MergeRoots concatenates root lists, dropping blanks and duplicates while
// keeping the first occurrence.
func MergeRoots(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, r := range l {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			k := filepath.Clean(r)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
