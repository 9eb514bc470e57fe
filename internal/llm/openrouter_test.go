package llm

import (
	"errors"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         OpenRouterConfig
		wantErr     bool
		wantModel   string
		wantBaseURL string
	}{
		{
			name:        "default base URL",
			cfg:         OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-sonnet-4"},
			wantModel:   "anthropic/claude-sonnet-4",
			wantBaseURL: defaultOpenRouterBaseURL,
		},
		{
			name:        "custom base URL",
			cfg:         OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.5-flash", BaseURL: "https://proxy.example/v1"},
			wantModel:   "google/gemini-2.5-flash",
			wantBaseURL: "https://proxy.example/v1",
		},
		{
			name:    "missing key",
			cfg:     OpenRouterConfig{Model: "anthropic/claude-sonnet-4"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrNotConfigured) {
					t.Fatalf("err = %v, want ErrNotConfigured", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ModelID() != tt.wantModel {
				t.Errorf("model = %q, want %q", p.ModelID(), tt.wantModel)
			}
			if p.baseURL != tt.wantBaseURL {
				t.Errorf("baseURL = %q, want %q", p.baseURL, tt.wantBaseURL)
			}
		})
	}
}
