package refs

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PathResolver resolves a sandboxed file or directory reference.
type PathResolver interface {
	Resolve(ref string) Result
}

// URLResolver resolves a remote URL reference.
type URLResolver interface {
	Resolve(ctx context.Context, url string) Result
}

// Assembler drives resolution of a reference list and concatenates the
// successful blocks into prompt context.
type Assembler struct {
	Paths PathResolver
	URLs  URLResolver
}

// Assembly is the outcome of resolving an ordered reference list.
type Assembly struct {
	// Context is the concatenation of successful blocks in input order.
	Context string
	// Results has exactly one entry per input reference, in input order,
	// failures included.
	Results []Result
	// Errors holds the human-readable messages of the failed references.
	Errors []string
}

// HasContext reports whether any reference contributed content.
func (a Assembly) HasContext() bool {
	return a.Context != ""
}

// IsURL reports whether a reference should be fetched rather than read from
// the sandbox.
func IsURL(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve resolves every reference independently; one failure never aborts
// the siblings. References resolve concurrently, but block concatenation and
// the result list always follow input order.
func (a *Assembler) Resolve(ctx context.Context, references []string) Assembly {
	results := make([]Result, len(references))

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range references {
		g.Go(func() error {
			if IsURL(ref) {
				results[i] = a.URLs.Resolve(gctx, ref)
			} else {
				results[i] = a.Paths.Resolve(ref)
			}
			return nil
		})
	}
	// Resolvers report failures as Results, never as errors.
	_ = g.Wait()

	var sb strings.Builder
	var errs []string
	for _, r := range results {
		if r.Failed() {
			errs = append(errs, r.Message)
			continue
		}
		sb.WriteString(r.Block())
	}

	return Assembly{
		Context: sb.String(),
		Results: results,
		Errors:  errs,
	}
}
