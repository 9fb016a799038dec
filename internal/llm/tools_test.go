package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

var scaleTool = ToolDefinition{
	Name:        "scale",
	Description: "Scale an application",
	Parameters:  json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
}

// toolConversation is a request after one tool round trip.
func toolConversation() CompletionRequest {
	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You manage apps."},
			{Role: RoleUser, Content: "scale joke"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "scale", Arguments: `{"name":"joke"}`}}},
			{Role: RoleTool, ToolCallID: "call-1", Content: `{"ok":true}`},
		},
		Tools: []ToolDefinition{scaleTool},
	}
}

func TestAnthropicToolRoundTrip(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{
			"model":"claude-test",
			"stop_reason":"tool_use",
			"usage":{"input_tokens":12,"output_tokens":7},
			"content":[
				{"type":"text","text":"Scaling now."},
				{"type":"tool_use","id":"toolu_1","name":"scale","input":{"name":"joke","instances":3}}
			]
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.url = srv.URL

	resp, err := p.Complete(context.Background(), toolConversation())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Scaling now." || len(resp.ToolCalls) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "toolu_1" || tc.Name != "scale" {
		t.Errorf("tool call = %+v", tc)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil || args["instances"] != float64(3) {
		t.Errorf("arguments = %s", tc.Arguments)
	}

	if got["system"] != "You manage apps." {
		t.Errorf("system = %v", got["system"])
	}
	tools := got["tools"].([]any)
	if tools[0].(map[string]any)["name"] != "scale" {
		t.Errorf("tools = %v", tools)
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected user, assistant, tool_result messages, got %d", len(msgs))
	}
	last := msgs[2].(map[string]any)
	block := last["content"].([]any)[0].(map[string]any)
	if last["role"] != "user" || block["type"] != "tool_result" || block["tool_use_id"] != "call-1" {
		t.Errorf("tool result message = %v", last)
	}
}

func TestAnthropicFoldsConsecutiveToolResults(t *testing.T) {
	_, msgs := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "do two things"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Name: "start", Arguments: `{}`}, {ID: "b", Name: "stop", Arguments: `{}`}}},
		{Role: RoleTool, ToolCallID: "a", Content: "1"},
		{Role: RoleTool, ToolCallID: "b", Content: "2"},
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if len(msgs[2].Content) != 2 {
		t.Errorf("expected both results in one message, got %+v", msgs[2])
	}
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad tools"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-test")
	p.url = srv.URL
	if _, err := p.Complete(context.Background(), toolConversation()); err == nil {
		t.Error("expected error")
	}
}

func TestOllamaToolRoundTrip(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{
			"model":"llama3",
			"done":true,
			"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"scale","arguments":{"name":"joke"}}}]}
		}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL, "llama3").Complete(context.Background(), toolConversation())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "scale" || resp.ToolCalls[0].ID == "" {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if len(got.Tools) != 1 || got.Tools[0].Function.Name != "scale" {
		t.Errorf("tools = %+v", got.Tools)
	}
	last := got.Messages[len(got.Messages)-1]
	if last.Role != "tool" || last.ToolName != "scale" {
		t.Errorf("tool message = %+v", last)
	}
}

func TestOpenAICompatibleToolRoundTrip(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"x","object":"chat.completion","model":"gpt-test",
			"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8},
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
				"tool_calls":[{"id":"call_9","type":"function","function":{"name":"scale","arguments":"{\"name\":\"joke\"}"}}]}}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatibleProvider("openai", srv.URL+"/v1", "key", "gpt-test")
	resp, err := p.Complete(context.Background(), toolConversation())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_9" || resp.ToolCalls[0].Arguments != `{"name":"joke"}` {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 3 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}

	msgs := got["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	if last["role"] != "tool" || last["tool_call_id"] != "call-1" {
		t.Errorf("tool message = %v", last)
	}
	tools := got["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	if fn["name"] != "scale" {
		t.Errorf("tools = %v", tools)
	}
}
