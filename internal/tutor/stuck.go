package tutor

import (
	"strings"
	"unicode/utf8"

	"github.com/abhisek/casetutor/internal/session"
)

// stuckPhrases flag a message when they appear anywhere in it.
var stuckPhrases = []string{
	"i don't know",
	"i'm not sure",
	"not sure",
	"what should i",
	"what do i",
	"help",
	"stuck",
	"confused",
	"no idea",
	"can you help",
	"i'm lost",
	"what now",
}

// stuckTokens flag a message only as whole words, so "um" does not match
// "stadium" and a question mark inside a real question does not count.
var stuckTokens = map[string]bool{
	"?":  true,
	"um": true,
	"uh": true,
}

// IsStuck reports whether message suggests the learner is stuck. Any one
// rule is enough: a short message, a confusion phrase, or a run of short
// learner turns in the recent history.
func IsStuck(cfg Config, message string, history []session.Turn) bool {
	msg := strings.ToLower(strings.TrimSpace(message))

	if utf8.RuneCountInString(msg) < cfg.ShortMessageThreshold {
		return true
	}

	for _, phrase := range stuckPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	for _, tok := range strings.Fields(msg) {
		if stuckTokens[tok] || stuckTokens[strings.Trim(tok, ".,!;:")] {
			return true
		}
	}

	return shortRecentTurns(cfg, history)
}

func shortRecentTurns(cfg Config, history []session.Turn) bool {
	if n := cfg.RecentTurnWindow; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	count, total := 0, 0
	for _, t := range history {
		if t.Role != session.RoleLearner {
			continue
		}
		count++
		total += utf8.RuneCountInString(t.Content)
	}
	if count < cfg.MinRecentLearnerTurns || count == 0 {
		return false
	}
	return float64(total)/float64(count) < float64(cfg.ShortAverageThreshold)
}
