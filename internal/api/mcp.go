package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ctxchat/internal/chat"
	"github.com/kalambet/ctxchat/internal/storage"
)

// RecentStore is the slice of the storage layer the MCP layer needs.
type RecentStore interface {
	RecentInteractions(limit int) ([]storage.Interaction, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Chat  *chat.Orchestrator
	Store RecentStore
}

// NewMCPServer creates an MCP server exposing chat and context resolution as
// tools, plus the recent interaction log as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"ctxchat",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ctxchat: chat with inline @file, @dir, and @URL context references."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send a chat message. Inline @path, @\"quoted path\", and @URL references are resolved into prompt context before generation."),
			mcp.WithString("message", mcp.Description("The message, with optional inline references"), mcp.Required()),
			mcp.WithString("model", mcp.Description("Model name (defaults to the configured default)")),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("resolve_context",
			mcp.WithDescription("Resolve a single context reference (sandboxed path or URL) and return its content without running generation."),
			mcp.WithString("ref", mcp.Description("Path relative to the allowed directory, or an http(s) URL"), mcp.Required()),
		),
		mcpResolveContext(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 logged interactions (message summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		model := req.GetString("model", "")

		turn, err := deps.Chat.Prepare(ctx, chat.Request{Message: message, Model: model})
		if err != nil {
			return mcpError(err.Error()), nil
		}

		var response strings.Builder
		var genErr string
		err = deps.Chat.Stream(ctx, turn, func(ev chat.Event) error {
			switch ev.Type {
			case chat.EventText:
				response.WriteString(ev.Data)
			case chat.EventContextError:
				response.WriteString(fmt.Sprintf("[context errors]\n%s\n\n", ev.Data))
			case chat.EventError:
				genErr = ev.Data
			}
			return nil
		})
		if err != nil {
			return mcpError(fmt.Sprintf("chat failed: %v", err)), nil
		}
		if genErr != "" {
			return mcpError(genErr), nil
		}

		return mcpText(response.String()), nil
	}
}

func mcpResolveContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := req.RequireString("ref")
		if err != nil {
			return mcpError("ref is required"), nil
		}

		asm := deps.Chat.Assembler.Resolve(ctx, []string{ref})
		result := asm.Results[0]
		if result.Failed() {
			return mcpError(result.Message), nil
		}
		if !asm.HasContext() {
			return mcpText(result.Message), nil
		}
		return mcpText(asm.Context), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.RecentInteractions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Message   string `json:"message"`
			Model     string `json:"model"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			message := ix.UserMessage
			if utf8.RuneCountInString(message) > 200 {
				runes := []rune(message)
				message = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Message:   message,
				Model:     ix.Model,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
