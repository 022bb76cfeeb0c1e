package sandbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/ctxchat/internal/refs"
)

const (
	// DefaultMaxFileBytes is the per-file read ceiling (10 MiB).
	DefaultMaxFileBytes = 10 << 20
	// DefaultMaxDirEntries caps how many entries a directory listing reports.
	DefaultMaxDirEntries = 50
)

// Reader turns sandboxed paths into context blocks, enforcing size and
// entry-count ceilings before anything reaches the prompt.
type Reader struct {
	box          *Sandbox
	maxFileBytes int64
	maxDirs      int
}

// NewReader creates a Reader over box. Non-positive ceilings fall back to the
// defaults.
func NewReader(box *Sandbox, maxFileBytes int64, maxDirEntries int) *Reader {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	if maxDirEntries <= 0 {
		maxDirEntries = DefaultMaxDirEntries
	}
	return &Reader{box: box, maxFileBytes: maxFileBytes, maxDirs: maxDirEntries}
}

// Resolve validates ref against the sandbox and reads it as a file or
// directory listing. Every failure is folded into the returned Result;
// nothing here aborts resolution of sibling references.
func (r *Reader) Resolve(ref string) refs.Result {
	res, err := r.box.Resolve(ref)
	if err != nil {
		return refs.Error(ref, refs.KindFilePath, pathErrorMessage(ref, err))
	}

	info, err := os.Stat(res.Path)
	if err != nil {
		return refs.Error(ref, refs.KindFilePath,
			fmt.Sprintf("Error: Path not found in context directory: '%s'", Clean(ref))).
			WithResolved(res.Path)
	}

	switch {
	case info.Mode().IsRegular():
		return r.readFile(ref, res, info.Size())
	case info.IsDir():
		return r.listDir(ref, res)
	default:
		return refs.Error(ref, refs.KindFilePath,
			fmt.Sprintf("Error: Path '%s' exists but is not a file or directory.", res.Display)).
			WithResolved(res.Path)
	}
}

func (r *Reader) readFile(ref string, res Resolved, size int64) refs.Result {
	if size > r.maxFileBytes {
		msg := fmt.Sprintf("Error: File '%s' is too large (%.2f MB > %d MB limit). Skipping.",
			res.Display, float64(size)/(1<<20), r.maxFileBytes>>20)
		return refs.Error(ref, refs.KindFilePath, msg).WithResolved(res.Path)
	}

	var text string
	if strings.EqualFold(filepath.Ext(res.Path), ".pdf") {
		extracted, err := extractPDFText(res.Path, r.maxFileBytes)
		if err != nil {
			return refs.Error(ref, refs.KindFilePath,
				fmt.Sprintf("Error reading PDF '%s': %v", res.Display, err)).
				WithResolved(res.Path)
		}
		text = extracted
	} else {
		f, err := os.Open(res.Path)
		if err != nil {
			return refs.Error(ref, refs.KindFilePath,
				fmt.Sprintf("Error reading file '%s': %v", res.Display, err)).
				WithResolved(res.Path)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, r.maxFileBytes))
		if err != nil {
			return refs.Error(ref, refs.KindFilePath,
				fmt.Sprintf("Error reading file '%s': %v", res.Display, err)).
				WithResolved(res.Path)
		}
		// Lossy decode: invalid byte sequences are dropped, never fatal.
		text = strings.ToValidUTF8(string(data), "")
	}

	if text == "" {
		return refs.OKEmpty(ref, refs.KindFilePath,
			fmt.Sprintf("File '%s' contained no readable context.", res.Display)).
			WithResolved(res.Path)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- START CONTEXT FROM FILE: %s ---\n", res.Display)
	sb.WriteString(text)
	fmt.Fprintf(&sb, "\n--- END CONTEXT FROM FILE: %s ---\n\n", res.Display)

	return refs.OK(ref, refs.KindFilePath, sb.String(),
		fmt.Sprintf("Context added from file '%s'.", res.Display)).
		WithResolved(res.Path)
}

func (r *Reader) listDir(ref string, res Resolved) refs.Result {
	entries, err := os.ReadDir(res.Path)
	if err != nil {
		return refs.Error(ref, refs.KindFilePath,
			fmt.Sprintf("Error processing directory '%s': %v", res.Display, err)).
			WithResolved(res.Path)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- START CONTEXT FROM FOLDER CONTENTS: %s/ ---\n", res.Display)

	if len(entries) == 0 {
		sb.WriteString("(Folder is empty)\n")
	}

	// os.ReadDir returns entries sorted by name, which keeps listings
	// deterministic across runs.
	count := 0
	for _, entry := range entries {
		if count >= r.maxDirs {
			fmt.Fprintf(&sb, "... (truncated listing at %d items)\n", r.maxDirs)
			break
		}

		full := filepath.Join(res.Path, entry.Name())
		rel := res.Display + "/" + entry.Name()

		// The filesystem can change between ReadDir and inspection; anything
		// that no longer resolves inside the root is reported, not read.
		if !r.box.Revalidate(full) {
			fmt.Fprintf(&sb, "--- SKIPPING ITEM (outside allowed dir): %s ---\n", rel)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(&sb, "--- SKIPPING ITEM (not found): %s ---\n", rel)
			continue
		}

		switch {
		case info.Mode().IsRegular():
			if info.Size() > r.maxFileBytes {
				fmt.Fprintf(&sb, "- %s [File] (SKIPPED - Too large: %.2f MB)\n",
					rel, float64(info.Size())/(1<<20))
			} else {
				fmt.Fprintf(&sb, "- %s [File] (%.1f KB)\n", rel, float64(info.Size())/1024)
				count++
			}
		case info.IsDir():
			fmt.Fprintf(&sb, "- %s/ [DIR]\n", rel)
			count++
		}
		// Devices, sockets, and broken symlinks are omitted from listings.
	}

	fmt.Fprintf(&sb, "--- END CONTEXT FROM FOLDER CONTENTS: %s/ ---\n\n", res.Display)

	return refs.OK(ref, refs.KindFilePath, sb.String(),
		fmt.Sprintf("Context added from folder '%s/'.", res.Display)).
		WithResolved(res.Path)
}

// pathErrorMessage maps sandbox errors onto the user-facing messages the
// resolution results carry.
func pathErrorMessage(ref string, err error) string {
	clean := Clean(ref)
	switch {
	case errors.Is(err, ErrRootUnset):
		return "Error: The allowed context directory is not configured or accessible."
	case errors.Is(err, ErrRootMissing):
		return "Error: The allowed context directory does not exist."
	case errors.Is(err, ErrAbsolutePath), errors.Is(err, ErrTraversal):
		return fmt.Sprintf("Error: Only relative paths within the context directory are allowed. "+
			"Path traversal ('..') or absolute paths are forbidden: '%s'", ref)
	case errors.Is(err, ErrOutsideRoot):
		return fmt.Sprintf("Error: Access denied. Path '%s' resolves outside the allowed directory.", ref)
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Error: Path not found in context directory: '%s'", clean)
	default:
		return fmt.Sprintf("Error resolving path '%s': %v", ref, err)
	}
}
