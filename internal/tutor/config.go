package tutor

// Config holds the model limits and stuck-detection thresholds.
type Config struct {
	// TurnMaxTokens bounds a mid-case reply.
	TurnMaxTokens int

	// OpeningMaxTokens bounds the case opening.
	OpeningMaxTokens int

	Temperature float64

	// ShortMessageThreshold flags messages shorter than this many
	// characters after trimming.
	ShortMessageThreshold int

	// RecentTurnWindow is how many trailing conversation turns the rolling
	// average looks at.
	RecentTurnWindow int

	// MinRecentLearnerTurns is how many learner turns the window must hold
	// before the rolling average applies.
	MinRecentLearnerTurns int

	// ShortAverageThreshold flags a window whose mean learner message
	// length is below this many characters.
	ShortAverageThreshold int
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		TurnMaxTokens:         1024,
		OpeningMaxTokens:      512,
		Temperature:           0.7,
		ShortMessageThreshold: 10,
		RecentTurnWindow:      6,
		MinRecentLearnerTurns: 2,
		ShortAverageThreshold: 20,
	}
}
