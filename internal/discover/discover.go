package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPattern selects the chapter sources of a book project.
const DefaultPattern = "chapters/*.qmd"

// RootMarkers are the entries whose presence marks a project root.
var RootMarkers = []string{"_quarto.yml", ".here", ".git", "DESCRIPTION"}

// FindRoot walks up from start to the nearest directory holding a root
// marker or an .Rproj file. It returns the absolute form of start when no
// marker is found.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	for dir := abs; ; {
		if isRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	for _, m := range RootMarkers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.Rproj"))
	return len(matches) > 0
}

// Compile parses a slash-separated glob pattern. "*" stops at "/" while
// "**" crosses directories.
func Compile(pattern string) (glob.Glob, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty glob pattern")
	}
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return g, nil
}

// Resolve returns the regular files under root whose root-relative path
// matches pattern, sorted lexically.
func Resolve(root, pattern string) ([]string, error) {
	g, err := Compile(pattern)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if g.Match(filepath.ToSlash(rel)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
