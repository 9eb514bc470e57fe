package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/store"
)

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockText("Mom: He's been barking all night."),
	)

	first, err := mock.Generate(t.Context(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first.Content) != `{"a":1}` || first.Usage.InputTokens != 10 {
		t.Fatalf("first = %s usage %+v", first.Content, first.Usage)
	}

	second, err := mock.Generate(t.Context(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Text() != "Mom: He's been barking all night." {
		t.Fatalf("second.Text() = %q", second.Text())
	}

	_, err = mock.Generate(t.Context(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("empty queue err = %v, want *ErrProviderUnavailable", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockText("ok"))
	req := Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hello"}}}
	_, _ = mock.Generate(t.Context(), req)

	last, found := mock.LastCall()
	if !found {
		t.Fatal("expected a recorded call")
	}
	if last.System != "sys" || last.Messages[0].Content != "hello" {
		t.Fatalf("recorded %+v", last)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("CallCount = %d", mock.CallCount())
	}
}

func TestResponseText(t *testing.T) {
	var nilResp *Response
	if nilResp.Text() != "" {
		t.Fatal("nil response should yield empty text")
	}
	r := &Response{Content: json.RawMessage("  hint text \n")}
	if r.Text() != "hint text" {
		t.Fatalf("Text() = %q", r.Text())
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("PurposeFrom = %q", p)
	}
	if s := SessionFrom(ctx); s != "" {
		t.Fatalf("SessionFrom = %q", s)
	}

	ctx = WithSession(WithPurpose(ctx, "case-turn"), "sess-1")
	if p := PurposeFrom(ctx); p != "case-turn" {
		t.Fatalf("PurposeFrom = %q", p)
	}
	if s := SessionFrom(ctx); s != "sess-1" {
		t.Fatalf("SessionFrom = %q", s)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantErr       bool
		notConfigured bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k"}}, false, false},
		{"openai without key", Config{Provider: "openai"}, true, true},
		{"gemini with key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}}, false, false},
		{"openrouter without key", Config{Provider: "openrouter"}, true, true},
		{"mock", Config{Provider: "mock"}, false, false},
		{"unknown", Config{Provider: "llama"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrNotConfigured) != tt.notConfigured {
				t.Fatalf("errors.Is(ErrNotConfigured) = %v, want %v", !tt.notConfigured, tt.notConfigured)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CASETUTOR_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CASETUTOR_OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("CASETUTOR_LLM_TIMEOUT", "5s")
	t.Setenv("CASETUTOR_LLM_MAX_RETRIES", "5")

	cfg := ConfigFromEnv()
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout.String() != "5s" || cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("timeout %s retries %d", cfg.Timeout, cfg.Retry.MaxAttempts)
	}
}

func TestDiscoverConfig_NoKeys(t *testing.T) {
	for _, k := range []string{"CASETUTOR_LLM_PROVIDER", "ANTHROPIC_API_KEY", "CASETUTOR_ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"CASETUTOR_OPENAI_API_KEY", "GEMINI_API_KEY", "CASETUTOR_GEMINI_API_KEY", "OPENROUTER_API_KEY", "CASETUTOR_OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, found := DiscoverConfig(); found {
		t.Fatal("expected no provider to be discovered")
	}
	_, err := NewProviderFromEnv(t.Context(), nil, zap.NewNop())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestDiscoverConfig_PrefersAnthropic(t *testing.T) {
	t.Setenv("CASETUTOR_LLM_PROVIDER", "")
	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("GEMINI_API_KEY", "g")

	cfg, found := DiscoverConfig()
	if !found || cfg.Provider != "anthropic" {
		t.Fatalf("found=%v provider=%q", found, cfg.Provider)
	}
}

type recordingEvents struct {
	events []store.LLMEventData
	err    error
}

func (r *recordingEvents) AppendLLMEvent(_ context.Context, data store.LLMEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestWithLogging_RecordsEvent(t *testing.T) {
	rec := &recordingEvents{}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("reply"), Usage: Usage{InputTokens: 3, OutputTokens: 4}})
	p := WithLogging(mock, "mock", rec, nil)

	ctx := WithSession(WithPurpose(t.Context(), "case-turn"), "s-42")
	if _, err := p.Generate(ctx, Request{System: "persona", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	e := rec.events[0]
	if e.Purpose != "case-turn" || e.SessionID != "s-42" || !e.Success {
		t.Fatalf("event = %+v", e)
	}
	if e.InputTokens != 3 || e.OutputTokens != 4 || e.ResponseBody != "reply" {
		t.Fatalf("event usage/body = %+v", e)
	}
	if !strings.Contains(e.RequestBody, "[system]\npersona") || !strings.Contains(e.RequestBody, "[user]\nhi") {
		t.Fatalf("request body = %q", e.RequestBody)
	}
}

func TestWithLogging_SinkFailureDoesNotFailCall(t *testing.T) {
	rec := &recordingEvents{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockText("ok")), "mock", rec, zap.NewNop())

	if _, err := p.Generate(t.Context(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithLogging_RecordsFailure(t *testing.T) {
	rec := &recordingEvents{}
	p := WithLogging(NewMockProvider(MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage("prose"), Err: errors.New("bad")}}), "mock", rec, nil)

	if _, err := p.Generate(t.Context(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	e := rec.events[0]
	if e.Success || e.ErrorMessage == "" || e.ResponseBody != "prose" {
		t.Fatalf("event = %+v", e)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(t.Context(), Config{Provider: "mock"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("ModelID = %q", p.ModelID())
	}
}
