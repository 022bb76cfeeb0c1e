// Package chat orchestrates a single chat turn: reference resolution, model
// validation, prompt assembly, streamed generation, and persistence.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/ctxchat/internal/refs"
	"github.com/kalambet/ctxchat/internal/storage"
)

// ErrEmptyRequest is returned by Prepare when the request carries neither
// message text nor context references.
var ErrEmptyRequest = errors.New("no message or context provided")

// InvalidModelError reports a model name that is unknown even after a forced
// refresh of the availability list.
type InvalidModelError struct {
	Model     string
	Available []string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("invalid model selected: %s", e.Model)
}

// EventType identifies a server-sent event emitted during a chat turn.
type EventType string

const (
	// EventContextError reports reference resolution failures before any
	// generated text.
	EventContextError EventType = "context_error"
	// EventText carries one generated text chunk.
	EventText EventType = "text"
	// EventError reports a generation failure; no further text follows.
	EventError EventType = "error"
	// EventEnd terminates the stream.
	EventEnd EventType = "end_stream"
)

// Event is one unit of the chat response stream.
type Event struct {
	Type EventType
	Data string
}

// Backend streams generated text for a prompt.
type Backend interface {
	StreamGenerate(ctx context.Context, model, prompt string, fn func(text string) error) error
}

// ModelCatalog validates model names against the backend's availability list.
type ModelCatalog interface {
	Default() string
	Validate(ctx context.Context, model string) bool
	Get(ctx context.Context, force bool) []string
}

// Log records completed interactions.
type Log interface {
	AppendInteraction(storage.Interaction) error
}

// Orchestrator runs chat turns against an injected backend, catalog, and log.
type Orchestrator struct {
	Assembler *refs.Assembler
	Backend   Backend
	Models    ModelCatalog
	Log       Log

	// InlineErrors controls whether resolution failures are reported to the
	// client as a context_error event. The turn proceeds either way.
	InlineErrors bool
}

// Request is one incoming chat message. ActiveContext carries references
// supplied outside the message text; they are resolved after any inline ones.
// Model may be empty to use the catalog default.
type Request struct {
	Message       string   `json:"message"`
	ActiveContext []string `json:"active_context,omitempty"`
	Model         string   `json:"model,omitempty"`
}

// Turn is a validated, fully assembled chat turn ready for streaming.
type Turn struct {
	model         string
	prompt        string
	userMessage   string
	contextInfo   string
	contextErrors []string
}

// Model returns the validated model name the turn will run against.
func (t *Turn) Model() string { return t.model }

// Prepare parses references out of the message, resolves them, validates the
// model, and assembles the final prompt. It fails with ErrEmptyRequest or
// *InvalidModelError before any generation happens, so callers can reject the
// request without starting a stream.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (*Turn, error) {
	parsed := refs.Parse(req.Message)
	references := append(parsed.References, req.ActiveContext...)
	if parsed.Message == "" && len(references) == 0 {
		return nil, ErrEmptyRequest
	}

	model := req.Model
	if model == "" {
		model = o.Models.Default()
	}
	if !o.Models.Validate(ctx, model) {
		return nil, &InvalidModelError{Model: model, Available: o.Models.Get(ctx, false)}
	}

	asm := o.Assembler.Resolve(ctx, references)

	message := refs.FinalizeMessage(parsed.Message, asm.HasContext(), len(asm.Errors) > 0)

	var contextInfo string
	if len(asm.Results) > 0 {
		encoded, err := json.Marshal(asm.Results)
		if err != nil {
			slog.Warn("encoding context info", "error", err)
		} else {
			contextInfo = string(encoded)
		}
	}

	return &Turn{
		model:         model,
		prompt:        asm.Context + message,
		userMessage:   req.Message,
		contextInfo:   contextInfo,
		contextErrors: asm.Errors,
	}, nil
}

// relayError marks an emit failure so a dead client is not mistaken for a
// backend failure.
type relayError struct{ err error }

func (e *relayError) Error() string { return e.err.Error() }
func (e *relayError) Unwrap() error { return e.err }

// Stream runs the turn, calling emit for each event in order: context errors
// first, then text chunks as they arrive, then end_stream on success. A
// generation failure terminates the stream with an error event instead, so
// the caller always sees exactly one terminal event. The interaction is
// logged only when generation completed and produced at least one chunk; a
// generation error or a client disconnect leaves the log untouched.
func (o *Orchestrator) Stream(ctx context.Context, t *Turn, emit func(Event) error) error {
	if o.InlineErrors && len(t.contextErrors) > 0 {
		if err := emit(Event{Type: EventContextError, Data: strings.Join(t.contextErrors, "\n")}); err != nil {
			return err
		}
	}

	var response strings.Builder
	err := o.Backend.StreamGenerate(ctx, t.model, t.prompt, func(text string) error {
		if err := emit(Event{Type: EventText, Data: text}); err != nil {
			return &relayError{err: err}
		}
		response.WriteString(text)
		return nil
	})
	if err != nil {
		var relay *relayError
		if errors.As(err, &relay) {
			// Client went away mid-stream; nothing left to tell it.
			return relay.err
		}
		slog.Error("generation failed", "model", t.model, "error", err)
		// The error event is terminal; end_stream only ever follows success.
		return emit(Event{Type: EventError, Data: fmt.Sprintf("An error occurred: %s", err)})
	}

	if response.Len() > 0 {
		interaction := storage.Interaction{
			ID:          uuid.NewString(),
			CreatedAt:   time.Now().UTC(),
			UserMessage: t.userMessage,
			BotResponse: response.String(),
			Model:       t.model,
			ContextInfo: t.contextInfo,
		}
		if err := o.Log.AppendInteraction(interaction); err != nil {
			slog.Error("saving interaction", "error", err)
		}
	} else {
		slog.Debug("skipping history save, empty response")
	}

	return emit(Event{Type: EventEnd})
}
