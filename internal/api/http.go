// Package api exposes the chat service over HTTP (SSE streaming) and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ctxchat/internal/chat"
	"github.com/kalambet/ctxchat/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// HistoryStore is the slice of the storage layer the HTTP API needs.
type HistoryStore interface {
	GetInteraction(id string) (storage.Interaction, error)
	ListInteractions(date string) ([]storage.Interaction, error)
	DistinctDates() ([]string, error)
	DeleteByDate(date string) (int64, error)
}

// Deps holds the handler's collaborators.
type Deps struct {
	Chat    *chat.Orchestrator
	Models  chat.ModelCatalog
	History HistoryStore
}

// NewHandler returns the HTTP API: streaming chat, model listing, and the
// interaction history endpoints.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/models", handleModels(deps.Models))
	r.Post("/chat", handleChat(deps.Chat))
	r.Get("/history", handleHistory(deps.History))
	r.Get("/history/dates", handleHistoryDates(deps.History))
	r.Get("/history/{id}", handleHistoryShow(deps.History))
	r.Delete("/history/{date}", handleHistoryDelete(deps.History))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleModels(models chat.ModelCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("refresh") == "1"
		list := models.Get(r.Context(), force)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"models":  list,
			"default": models.Default(),
		})
	}
}

func handleChat(orch *chat.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chat.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		turn, err := orch.Prepare(r.Context(), req)
		if err != nil {
			var invalid *chat.InvalidModelError
			switch {
			case errors.Is(err, chat.ErrEmptyRequest):
				httpError(w, http.StatusBadRequest, "No message or context provided.")
			case errors.As(err, &invalid):
				httpError(w, http.StatusBadRequest, "Invalid model selected: %s. Available: %v", invalid.Model, invalid.Available)
			default:
				httpError(w, http.StatusInternalServerError, "preparing chat: %v", err)
			}
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		err = orch.Stream(r.Context(), turn, func(ev chat.Event) error {
			payload, err := json.Marshal(eventBody(ev))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			// Headers are long gone; all we can do is note the broken stream.
			slog.Debug("chat stream ended early", "error", err)
		}
	}
}

// eventBody maps a chat event to its wire shape: one key per event type.
func eventBody(ev chat.Event) map[string]any {
	switch ev.Type {
	case chat.EventEnd:
		return map[string]any{"end_stream": true}
	default:
		return map[string]any{string(ev.Type): ev.Data}
	}
}

func handleHistory(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date != "" && !storage.ValidDate(date) {
			httpError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
			return
		}

		history, err := store.ListInteractions(date)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "fetching history: %v", err)
			return
		}
		if history == nil {
			history = []storage.Interaction{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"history": history})
	}
}

func handleHistoryShow(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		interaction, err := store.GetInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "Interaction not found: %s", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "fetching interaction: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interaction)
	}
}

func handleHistoryDates(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.DistinctDates()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "fetching dates: %v", err)
			return
		}
		if dates == nil {
			dates = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"dates": dates})
	}
}

func handleHistoryDelete(store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		if !storage.ValidDate(date) {
			httpError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
			return
		}

		count, err := store.DeleteByDate(date)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "deleting history: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"message":       fmt.Sprintf("Deleted %d entries for %s.", count, date),
			"deleted_count": count,
		})
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": fmt.Sprintf(format, args...),
	})
}
