package tutor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/casetutor/internal/session"
)

func learner(s string) session.Turn { return session.Turn{Role: session.RoleLearner, Content: s} }
func tutorTurn(s string) session.Turn {
	return session.Turn{Role: session.RoleTutor, Content: s}
}

func TestIsStuck_Message(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{"nine characters", "abcdefghi", true},
		{"ten characters", "abcdefghij", false},
		{"ten after trimming", "   abcdefghij   ", false},
		{"bare question mark", "?", true},
		{"idk", "idk", true},
		{"reasoned assessment", "I think it's croup because of the barky cough", false},
		{"question mark inside a question", "How long has the cough been going on?", false},
		{"dont know", "Honestly I don't know what to ask next", true},
		{"not sure", "I'm not sure what the next step should be", true},
		{"help", "Could you help me with the differential", true},
		{"confused", "I'm a bit confused about the vitals here", true},
		{"what now", "OK the exam is done, what now then", true},
		{"filler token", "um, maybe an ear infection then", true},
		{"uh token", "uh I would check the ears first", true},
		{"filler inside word", "Does the stadium noise bother him", false},
		{"spaced question mark", "what about the ears ?", true},
		{"case-insensitive", "NO IDEA what this rash could be", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStuck(cfg, tt.msg, nil))
		})
	}
}

func TestIsStuck_RecentHistory(t *testing.T) {
	cfg := DefaultConfig()
	long := "Can you tell me more about his breathing at night"

	tests := []struct {
		name    string
		history []session.Turn
		want    bool
	}{
		{"no history", nil, false},
		{"one short learner turn", []session.Turn{tutorTurn("Hi"), learner("ok")}, false},
		{"two short learner turns", []session.Turn{learner("ok"), tutorTurn("Sure."), learner("yes fine")}, true},
		{"long turns", []session.Turn{learner(long), tutorTurn("He wheezes."), learner(long)}, false},
		{
			"short turns outside window",
			[]session.Turn{
				learner("ok"), learner("yes"),
				tutorTurn("a"), tutorTurn("b"), tutorTurn("c"), tutorTurn("d"), tutorTurn("e"), learner(long),
			},
			false,
		},
		{
			"mean exactly at threshold",
			[]session.Turn{learner(strings.Repeat("a", 20)), learner(strings.Repeat("b", 20))},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStuck(cfg, long, tt.history))
		})
	}
}
