package theme

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestScoreBar(t *testing.T) {
	tests := []struct {
		score  int
		filled int
		label  string
	}{
		{0, 0, " 0/10"},
		{7, 7, " 7/10"},
		{10, 10, "10/10"},
		{14, 10, "10/10"},
		{-3, 0, " 0/10"},
	}
	for _, tt := range tests {
		got := ScoreBar(tt.score)
		if n := strings.Count(got, "█"); n != tt.filled {
			t.Errorf("ScoreBar(%d) has %d filled cells, want %d", tt.score, n, tt.filled)
		}
		if n := strings.Count(got, "░"); n != 10-tt.filled {
			t.Errorf("ScoreBar(%d) has %d empty cells, want %d", tt.score, n, 10-tt.filled)
		}
		if !strings.HasSuffix(got, tt.label) {
			t.Errorf("ScoreBar(%d) = %q, want suffix %q", tt.score, got, tt.label)
		}
	}
}

func TestBullets(t *testing.T) {
	if got := Bullets("Strengths", nil); got != "" {
		t.Errorf("Bullets with no items = %q, want empty", got)
	}
	got := Bullets("Strengths", []string{"Asked about onset", "Checked hydration"})
	if !strings.Contains(got, "Strengths") || !strings.Contains(got, "Checked hydration") {
		t.Errorf("Bullets output missing content: %q", got)
	}
	if lipgloss.Height(got) < 3 {
		t.Errorf("Bullets height = %d, want at least 3", lipgloss.Height(got))
	}
}

func TestPhaseBanner(t *testing.T) {
	if got := PhaseBanner("Physical exam"); !strings.Contains(got, "PHYSICAL EXAM") {
		t.Errorf("PhaseBanner = %q", got)
	}
}
