// Package fetch retrieves remote URL content for prompt context, with hard
// ceilings on bytes read and request duration. Oversized bodies are truncated
// and reported as partial successes; unsupported content types are rejected
// before any decoding.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/ctxchat/internal/refs"
)

const (
	// DefaultMaxBytes is the URL content ceiling (2 MiB).
	DefaultMaxBytes = 2 << 20
	// DefaultTimeout bounds the whole request including body read.
	DefaultTimeout = 10 * time.Second

	// A conventional browser UA avoids the simplest bot blocks.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	readChunkSize = 8192
)

// Fetcher performs bounded, streamed HTTP GETs and converts the responses
// into context blocks.
type Fetcher struct {
	client   *http.Client
	maxBytes int
	timeout  time.Duration
}

// NewFetcher creates a Fetcher. Non-positive limits fall back to defaults.
// The client carries no timeout of its own; each request gets a deadline.
func NewFetcher(timeout time.Duration, maxBytes int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{},
		maxBytes: maxBytes,
		timeout:  timeout,
	}
}

// Resolve fetches url and returns the outcome as a Result. Truncation keeps
// status ok with a truncation notice in the message; every other failure is
// an error result with an empty block.
func (f *Fetcher) Resolve(ctx context.Context, url string) refs.Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return refs.Error(url, refs.KindURL, fmt.Sprintf("Error fetching URL %s: %v", url, err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return refs.Error(url, refs.KindURL, f.transportErrorMessage(url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return refs.Error(url, refs.KindURL,
			fmt.Sprintf("Error fetching URL %s: status %d", url, resp.StatusCode))
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text") {
		return refs.Error(url, refs.KindURL,
			fmt.Sprintf("Error: Unsupported content type '%s' for URL: %s. Only HTML/Text supported.",
				contentType, url))
	}

	// Stream the body in chunks so an unbounded response cannot exhaust
	// memory; stop reading once the ceiling is crossed.
	var body []byte
	truncated := false
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
			if len(body) > f.maxBytes {
				body = body[:f.maxBytes]
				truncated = true
				break
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
				break
			}
			return refs.Error(url, refs.KindURL, f.transportErrorMessage(url, readErr))
		}
	}

	text := decodeText(body)
	if strings.Contains(contentType, "html") {
		text = htmlText(text)
	} else {
		text = strings.TrimSpace(text)
	}

	// Extraction can expand beyond the raw byte ceiling; enforce it again.
	if len(text) > f.maxBytes {
		text = text[:f.maxBytes]
		truncated = true
	}

	if text == "" {
		return refs.OKEmpty(url, refs.KindURL,
			fmt.Sprintf("URL %s contained no readable context.", url))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- START CONTEXT FROM URL: %s ---\n", url)
	sb.WriteString(text)
	if truncated {
		sb.WriteString("\n... (Content Truncated)")
	}
	fmt.Fprintf(&sb, "\n--- END CONTEXT FROM URL: %s ---\n\n", url)

	message := fmt.Sprintf("Context added from URL %s.", url)
	if truncated {
		message = fmt.Sprintf("URL content exceeds limit (%.1f MB). Truncated.",
			float64(f.maxBytes)/(1<<20))
	}
	return refs.OK(url, refs.KindURL, sb.String(), message)
}

// transportErrorMessage distinguishes timeouts from other connection
// failures, since the two are actionable in different ways.
func (f *Fetcher) transportErrorMessage(url string, err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("Error: Timeout fetching URL: %s (>%s)", url, f.timeout)
	}
	return fmt.Sprintf("Error fetching URL %s: %v", url, err)
}

