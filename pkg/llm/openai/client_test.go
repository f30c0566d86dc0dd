package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tagus/contactgraph/pkg/interfaces"
	"github.com/tagus/contactgraph/pkg/logging"
)

// newMockServer returns a server that replies to chat completion requests with
// the given content and records each request body.
func newMockServer(t *testing.T, content string, requests *[][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		if requests != nil {
			*requests = append(*requests, body)
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
					"finish_reason": "stop",
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
}

func newTestClient(t *testing.T, server *httptest.Server, options ...Option) *OpenAIClient {
	t.Helper()
	opts := append([]Option{
		WithBaseURL(server.URL),
		WithLogger(logging.Noop()),
	}, options...)
	return NewClient("test-key", opts...)
}

func TestGenerate(t *testing.T) {
	var requests [][]byte
	server := newMockServer(t, `{"title":"CTO"}`, &requests)
	defer server.Close()

	client := newTestClient(t, server, WithModel("gpt-4o-mini"))

	response, err := client.Generate(context.Background(), "Update the profile.",
		interfaces.WithSystemMessage("You are an extraction service."))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if response != `{"title":"CTO"}` {
		t.Errorf("unexpected response: %q", response)
	}

	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	var req map[string]interface{}
	if err := json.Unmarshal(requests[0], &req); err != nil {
		t.Fatalf("failed to parse request: %v", err)
	}
	if req["model"] != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %v", req["model"])
	}
	messages, ok := req["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system + user message, got %v", req["messages"])
	}
}

func TestGenerateTemperature(t *testing.T) {
	var requests [][]byte
	server := newMockServer(t, `{}`, &requests)
	defer server.Close()

	client := newTestClient(t, server, WithTemperature(0.7))

	if _, err := client.Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	// A per-call option overrides the client default.
	if _, err := client.Generate(context.Background(), "prompt",
		interfaces.WithTemperature(0.1)); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for i, want := range []float64{0.7, 0.1} {
		var req map[string]interface{}
		if err := json.Unmarshal(requests[i], &req); err != nil {
			t.Fatalf("failed to parse request %d: %v", i, err)
		}
		if got := req["temperature"]; got != want {
			t.Errorf("request %d: expected temperature %v, got %v", i, want, got)
		}
	}
}

func TestGenerateWithResponseFormat(t *testing.T) {
	var requests [][]byte
	server := newMockServer(t, `{}`, &requests)
	defer server.Close()

	client := newTestClient(t, server)

	format := interfaces.ResponseFormat{
		Name: "profile_patch",
		Schema: interfaces.JSONSchema{
			"type":                 "object",
			"properties":           map[string]interface{}{"title": map[string]interface{}{"type": "string"}},
			"additionalProperties": false,
		},
	}

	_, err := client.Generate(context.Background(), "prompt",
		interfaces.WithResponseFormat(format))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(requests[0], &req); err != nil {
		t.Fatalf("failed to parse request: %v", err)
	}
	rf, ok := req["response_format"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected response_format in request, got %v", req["response_format"])
	}
	if rf["type"] != "json_schema" {
		t.Errorf("expected json_schema response format, got %v", rf["type"])
	}
}

func TestGenerateGroundedDropsSchema(t *testing.T) {
	var requests [][]byte
	server := newMockServer(t, "free text", &requests)
	defer server.Close()

	client := newTestClient(t, server)

	format := interfaces.ResponseFormat{Name: "patch", Schema: interfaces.JSONSchema{"type": "object"}}
	_, err := client.Generate(context.Background(), "prompt",
		interfaces.WithResponseFormat(format),
		interfaces.WithWebGrounding(true))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(requests[0], &req); err != nil {
		t.Fatalf("failed to parse request: %v", err)
	}
	if _, present := req["response_format"]; present {
		t.Error("response_format must be dropped on grounded calls")
	}
}

func TestGenerateWithImages(t *testing.T) {
	var requests [][]byte
	server := newMockServer(t, `{}`, &requests)
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Generate(context.Background(), "describe",
		interfaces.WithImages([]interfaces.ImageBlob{
			{MIMEType: "image/png", Data: []byte{0x89, 0x50}},
		}))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if !strings.Contains(string(requests[0]), "data:image/png;base64,") {
		t.Error("expected image data URL in request body")
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "openai completion failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestName(t *testing.T) {
	if got := NewClient("k").Name(); got != "openai" {
		t.Errorf("expected provider name openai, got %q", got)
	}
}
