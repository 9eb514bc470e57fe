package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func ok() MockResponse {
	return MockResponse{Content: json.RawMessage(`{"ok":true}`)}
}

func fail(err error) MockResponse {
	return MockResponse{Err: err}
}

func TestRetry(t *testing.T) {
	down := &ErrProviderUnavailable{Err: errors.New("down")}
	invalid := &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{ok()}, false, 1},
		{"transient then success", []MockResponse{fail(down), ok()}, false, 2},
		{"rate limit honors retry-after", []MockResponse{fail(&ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}), ok()}, false, 2},
		{"all attempts fail", []MockResponse{fail(down), fail(down), fail(down)}, true, 3},
		{"max tokens not retried", []MockResponse{fail(&ErrMaxTokensExceeded{}), ok()}, true, 1},
		{"invalid retried once", []MockResponse{fail(invalid), fail(invalid), ok()}, true, 2},
		{"invalid then valid", []MockResponse{fail(invalid), ok()}, false, 2},
		{"not configured not retried", []MockResponse{fail(ErrNotConfigured), ok()}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, fastRetry())

			_, err := p.Generate(t.Context(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if mock.CallCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", mock.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestRetry_CancelledContext(t *testing.T) {
	mock := NewMockProvider(fail(&ErrProviderUnavailable{}), ok())
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: time.Second, Multiplier: 1})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := p.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type slowProvider struct{ delay time.Duration }

func (s slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	select {
	case <-time.After(s.delay):
		return &Response{Content: json.RawMessage("late")}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s slowProvider) ModelID() string { return "slow" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{delay: time.Second}, 10*time.Millisecond)

	_, err := p.Generate(t.Context(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want *ErrProviderUnavailable", err)
	}
	if p.ModelID() != "slow" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}

func TestWithTimeout_Disabled(t *testing.T) {
	inner := NewMockProvider()
	if got := WithTimeout(inner, 0); got != Provider(inner) {
		t.Fatal("expected zero timeout to return the inner provider")
	}
}
