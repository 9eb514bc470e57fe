package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	c := LookupCost("claude-sonnet-4-5-20250929")
	if c == nil {
		t.Fatal("expected pricing for default sonnet model")
	}
	// 1M in + 1M out
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-18) > 1e-9 {
		t.Errorf("Cost = %v, want 18", got)
	}
	if LookupCost("mock") != nil {
		t.Error("expected nil pricing for unknown model")
	}
}
