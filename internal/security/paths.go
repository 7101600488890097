// Package security keeps generated output files inside the directories the
// operator chose for them.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary identifier, such as a graph or sink
// name, into a safe file name. Runs of characters other than ASCII letters,
// digits, dot, underscore and dash become a single underscore. An empty
// result is "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// Within reports an error when path, after cleaning and resolving symlinks
// of its existing parents, is not inside dir.
func Within(path, dir string) error {
	absDir, err := canonical(dir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	absPath, err := canonical(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// OutputPath joins a sanitized file name onto dir and checks the result
// stays inside dir.
func OutputPath(dir, name string) (string, error) {
	p := filepath.Join(dir, SanitizeFilename(name))
	if err := Within(p, dir); err != nil {
		return "", err
	}
	return p, nil
}

// canonical returns the absolute form of p with symlinks resolved for the
// longest existing prefix, so a path that does not exist yet is still
// checked against where its parent really points.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	existing, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}
