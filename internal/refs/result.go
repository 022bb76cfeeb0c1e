package refs

// Kind classifies a reference by how it is resolved.
type Kind string

const (
	KindFilePath Kind = "file-path"
	KindURL      Kind = "url"
)

// Status is the terminal outcome of resolving one reference.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result records the outcome of resolving a single context reference.
// Constructed only through OK, OKEmpty, and Error so that an error result
// can never carry a context block.
type Result struct {
	Original     string `json:"original"`
	Kind         Kind   `json:"kind"`
	Status       Status `json:"status"`
	Message      string `json:"message"`
	Resolved     string `json:"resolved,omitempty"`
	ContextAdded bool   `json:"context_added"`

	block string
}

// OK returns a successful result carrying a context block.
func OK(original string, kind Kind, block, message string) Result {
	return Result{
		Original:     original,
		Kind:         kind,
		Status:       StatusOK,
		Message:      message,
		ContextAdded: block != "",
		block:        block,
	}
}

// OKEmpty returns a successful result that produced no content, such as an
// empty file or an empty directory listing that still resolved cleanly.
func OKEmpty(original string, kind Kind, message string) Result {
	return Result{
		Original: original,
		Kind:     kind,
		Status:   StatusOK,
		Message:  message,
	}
}

// Error returns a failed result. The context block is always empty.
func Error(original string, kind Kind, message string) Result {
	return Result{
		Original: original,
		Kind:     kind,
		Status:   StatusError,
		Message:  message,
	}
}

// WithResolved annotates the result with the filesystem location that was
// actually inspected. URL results leave this empty.
func (r Result) WithResolved(path string) Result {
	r.Resolved = path
	return r
}

// Block returns the context text to inject into the prompt. Empty for error
// results and for successful results that produced no content.
func (r Result) Block() string {
	return r.block
}

// Failed reports whether the reference could not be resolved.
func (r Result) Failed() bool {
	return r.Status == StatusError
}
