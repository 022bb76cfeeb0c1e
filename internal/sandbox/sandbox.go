// Package sandbox confines context-file access to a single root directory.
// All user-supplied paths are validated lexically before any filesystem
// access and re-validated after symlink resolution, so neither `..` segments
// nor symlinks can reach outside the root.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// ErrRootUnset means no context root directory is configured.
	// This is a configuration failure, not a user error.
	ErrRootUnset = errors.New("context root directory is not configured")
	// ErrRootMissing means the configured root does not exist on disk.
	ErrRootMissing = errors.New("context root directory does not exist")
	// ErrAbsolutePath means the candidate path was absolute.
	ErrAbsolutePath = errors.New("absolute paths are forbidden")
	// ErrTraversal means the candidate path contained a `..` segment.
	ErrTraversal = errors.New("path traversal is forbidden")
	// ErrOutsideRoot means the path resolved (via symlinks) outside the root.
	ErrOutsideRoot = errors.New("path resolves outside the allowed directory")
	// ErrNotFound means the path passed validation but does not exist.
	ErrNotFound = errors.New("path not found")
)

// Resolved is a validated path strictly inside the sandbox root.
type Resolved struct {
	// Path is the canonical absolute path with all symlinks resolved.
	Path string
	// Display is the root-relative path, forward-slash normalized,
	// safe to echo back to the user and into context markers.
	Display string
}

// Sandbox validates candidate relative paths against a fixed root directory.
type Sandbox struct {
	root string
}

// New creates a Sandbox rooted at dir. An empty dir yields ErrRootUnset on
// every resolution rather than an error here, since the sandboxed-path
// feature is optional relative to core generation.
func New(dir string) *Sandbox {
	return &Sandbox{root: dir}
}

// Root returns the configured root directory as given.
func (s *Sandbox) Root() string {
	return s.root
}

// realRoot canonicalizes the configured root, distinguishing the unset and
// missing cases so callers can surface them as configuration errors.
func (s *Sandbox) realRoot() (string, error) {
	if s.root == "" {
		return "", ErrRootUnset
	}
	abs, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", s.root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRootMissing, abs)
		}
		return "", fmt.Errorf("resolving root %q: %w", s.root, err)
	}
	return real, nil
}

// Clean strips surrounding whitespace and quote characters from a
// user-supplied candidate path.
func Clean(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `'"`)
	return strings.TrimSpace(p)
}

// Resolve validates candidate p and returns its canonical location inside
// the root. The lexical checks run before any filesystem access; the prefix
// check afterwards defeats symlink escapes the lexical pass cannot see.
func (s *Sandbox) Resolve(p string) (Resolved, error) {
	root, err := s.realRoot()
	if err != nil {
		return Resolved{}, err
	}

	clean := Clean(p)
	if clean == "" {
		return Resolved{}, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if filepath.IsAbs(clean) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrAbsolutePath, p)
	}
	if hasParentSegment(clean) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrTraversal, p)
	}

	target := filepath.Join(root, clean)
	real, err := filepath.EvalSymlinks(target)
	if err != nil {
		if os.IsNotExist(err) {
			return Resolved{}, fmt.Errorf("%w: %q", ErrNotFound, clean)
		}
		return Resolved{}, fmt.Errorf("resolving %q: %w", clean, err)
	}

	if !s.contains(root, real) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}

	display, err := filepath.Rel(root, real)
	if err != nil {
		return Resolved{}, fmt.Errorf("computing display path for %q: %w", clean, err)
	}
	return Resolved{Path: real, Display: filepath.ToSlash(display)}, nil
}

// Revalidate checks that an already-listed entry still resolves inside the
// root. Used by directory listings to defend against the filesystem mutating
// between listing and inspection.
func (s *Sandbox) Revalidate(path string) bool {
	root, err := s.realRoot()
	if err != nil {
		return false
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return s.contains(root, real)
}

// contains reports whether path equals root or lives under it. Comparison is
// case-insensitive only on platforms whose filesystems are.
func (s *Sandbox) contains(root, path string) bool {
	prefix := root + string(filepath.Separator)
	if caseInsensitiveFS() {
		return strings.EqualFold(path, root) ||
			strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix))
	}
	return path == root || strings.HasPrefix(path, prefix)
}

// hasParentSegment reports whether any path component is `..`, tolerating
// both separator styles in the raw input.
func hasParentSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	}) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
