package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/ctxchat/internal/chat"
	"github.com/kalambet/ctxchat/internal/refs"
	"github.com/kalambet/ctxchat/internal/storage"
)

func (s *stubHistory) RecentInteractions(limit int) ([]storage.Interaction, error) {
	if limit > len(s.interactions) {
		limit = len(s.interactions)
	}
	return s.interactions[:limit], nil
}

func newTestMCPDeps(backend *stubBackend, history *stubHistory) MCPDeps {
	orch := &chat.Orchestrator{
		Assembler:    &refs.Assembler{Paths: stubPaths{}, URLs: stubURLs{}},
		Backend:      backend,
		Models:       stubCatalog{},
		Log:          history,
		InlineErrors: true,
	}
	return MCPDeps{Chat: orch, Store: history}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_Chat(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{chunks: []string{"Hello", " there"}}, &stubHistory{})
	handler := mcpChat(deps)

	req := makeCallToolRequest("chat", map[string]interface{}{
		"message": "hi",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "Hello there" {
		t.Errorf("response = %q", got)
	}
}

func TestMCPTool_Chat_ContextErrorsInlined(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{chunks: []string{"ok"}}, &stubHistory{})
	handler := mcpChat(deps)

	req := makeCallToolRequest("chat", map[string]interface{}{
		"message": "@bad.txt hi",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := toolText(t, result)
	if !strings.Contains(text, "[context errors]") || !strings.Contains(text, "bad.txt") {
		t.Errorf("response missing context error report: %q", text)
	}
}

func TestMCPTool_Chat_MissingMessage(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{}, &stubHistory{})
	handler := mcpChat(deps)

	result, err := handler(context.Background(), makeCallToolRequest("chat", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing message")
	}
}

func TestMCPTool_Chat_InvalidModel(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{}, &stubHistory{})
	handler := mcpChat(deps)

	req := makeCallToolRequest("chat", map[string]interface{}{
		"message": "hi",
		"model":   "gpt-4",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown model")
	}
	if !strings.Contains(toolText(t, result), "gpt-4") {
		t.Errorf("error = %q, want model name", toolText(t, result))
	}
}

func TestMCPTool_Chat_GenerationError(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{err: errors.New("quota exceeded")}, &stubHistory{})
	handler := mcpChat(deps)

	result, err := handler(context.Background(), makeCallToolRequest("chat", map[string]interface{}{
		"message": "hi",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(toolText(t, result), "quota exceeded") {
		t.Errorf("error = %q", toolText(t, result))
	}
}

func TestMCPTool_ResolveContext(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{}, &stubHistory{})
	handler := mcpResolveContext(deps)

	result, err := handler(context.Background(), makeCallToolRequest("resolve_context", map[string]interface{}{
		"ref": "notes.txt",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", toolText(t, result))
	}
	if got := toolText(t, result); !strings.Contains(got, "[ctx:notes.txt]") {
		t.Errorf("content = %q", got)
	}
}

func TestMCPTool_ResolveContext_Failure(t *testing.T) {
	deps := newTestMCPDeps(&stubBackend{}, &stubHistory{})
	handler := mcpResolveContext(deps)

	result, err := handler(context.Background(), makeCallToolRequest("resolve_context", map[string]interface{}{
		"ref": "bad.txt",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(toolText(t, result), "bad.txt") {
		t.Errorf("error = %q", toolText(t, result))
	}
}

func TestMCPResource_Recent(t *testing.T) {
	long := strings.Repeat("x", 300)
	history := &stubHistory{
		interactions: []storage.Interaction{
			{ID: "int-1", CreatedAt: time.Now().UTC(), UserMessage: long, Model: "gemini-2.0-flash"},
		},
	}
	deps := newTestMCPDeps(&stubBackend{}, history)
	handler := mcpResourceRecent(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "history://recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var summaries []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &summaries); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if len([]rune(summaries[0].Message)) != 203 {
		t.Errorf("message not truncated to 200 runes + ellipsis: %d", len([]rune(summaries[0].Message)))
	}
}
