// Package pathfind discovers the launchable executables under a game's
// install directory. What counts as an executable is platform-specific, so
// the finder is built for a GOOS and tested against all of them.
package pathfind

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Locator resolves an install path to its launch executable candidates.
type Locator interface {
	Executables(installPath string) []string
}

// Finder walks install directories for one platform's idea of an
// executable: files ending in .exe on Windows, files with an executable
// bit elsewhere (which also covers binaries inside macOS .app bundles).
type Finder struct {
	goos string
}

// New builds a finder for the given GOOS.
func New(goos string) *Finder {
	return &Finder{goos: goos}
}

// Default builds a finder for the running platform.
func Default() *Finder {
	return New(runtime.GOOS)
}

// Executables returns every executable under root, sorted. A missing or
// unreadable root yields an empty set; an install that cannot be inspected
// just has nothing to launch.
func (f *Finder) Executables(root string) []string {
	if root == "" {
		return nil
	}
	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if f.isExecutable(path, d) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func (f *Finder) isExecutable(path string, d fs.DirEntry) bool {
	if f.goos == "windows" {
		return strings.EqualFold(filepath.Ext(path), ".exe")
	}
	info, err := d.Info()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
