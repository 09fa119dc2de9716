package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zulfachrienst/chatbot-rag/internal/reliability"
)

func TestNewCompleterAutoFallsBackToMock(t *testing.T) {
	c, err := NewCompleter(Config{Provider: "auto", BaseURL: "https://api.groq.com/openai/v1"})
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	if _, ok := c.(*MockCompleter); !ok {
		t.Fatalf("NewCompleter() = %T, want *MockCompleter", c)
	}
	if _, err := NewCompleter(Config{Provider: "bard"}); err == nil {
		t.Fatalf("NewCompleter(unknown) error = nil, want error")
	}
}

func TestOpenAICompleterComplete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Halo!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Config{BaseURL: srv.URL, APIKey: "gsk", Model: "llama3-8b-8192", Temperature: 0.7, MaxTokens: 1000})
	out, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "halo"},
	}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "Halo!" {
		t.Fatalf("Complete() = %q, want %q", out, "Halo!")
	}
	if got.Model != "llama3-8b-8192" || got.Temperature != 0.7 || got.MaxTokens != 1000 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "halo" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestOpenAICompleterNoChoicesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Config{BaseURL: srv.URL, Model: "m"})
	out, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err != nil || out != "" {
		t.Fatalf("Complete() = %q, %v, want empty and nil", out, err)
	}
}

func TestOpenAICompleterQuotaIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Config{BaseURL: srv.URL, Model: "m"})
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err == nil || reliability.IsTransient(err) {
		t.Fatalf("err = %v, want permanent error", err)
	}
}

func TestMockCompleterClassification(t *testing.T) {
	m := NewMockCompleter()
	sys := Message{Role: RoleSystem, Content: "Answer only yes or no."}
	yes, _ := m.Complete(context.Background(), CompletionRequest{Messages: []Message{sys, {Role: RoleUser, Content: "tampilkan semua sepatu"}}})
	no, _ := m.Complete(context.Background(), CompletionRequest{Messages: []Message{sys, {Role: RoleUser, Content: "harga sepatu merah?"}}})
	if yes != "yes" || no != "no" {
		t.Fatalf("classification = %q/%q, want yes/no", yes, no)
	}
	reply, _ := m.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleSystem, Content: "ctx"}, {Role: RoleUser, Content: "halo"}}})
	if !strings.Contains(reply, "halo") {
		t.Fatalf("reply = %q, want echo", reply)
	}
}
