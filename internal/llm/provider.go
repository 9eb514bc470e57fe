package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider is the boundary between the tutoring engine and a language model.
// Callers send a Request and receive either free text or schema-shaped JSON.
type Provider interface {
	// Generate sends the request to the model. When req.Schema is set the
	// provider asks for structured output and validates the result; when it
	// is nil the response Content holds the model's raw text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider targets.
	ModelID() string
}

// Request describes one model call.
type Request struct {
	// System carries the persona and teaching policy.
	System string

	// Messages is the conversation so far, oldest first. The last entry is
	// normally the learner's turn.
	Messages []Message

	// Schema, when set, constrains the response to a JSON shape.
	Schema *Schema

	MaxTokens int

	// Temperature ranges 0.0 - 1.0. Zero leaves the provider default.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the model output must satisfy.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "case-debrief". Also the
	// cache key for compiled validators.
	Name string

	Description string

	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is validated JSON when the request carried a Schema and the
	// raw text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Text returns the response content as trimmed prose.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Content))
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// openingCue stands in for the learner when a conversation opens with the
// attending, for APIs that require the first turn to come from the user.
const openingCue = "(The encounter begins.)"

// alternate folds consecutive turns by the same role into one and drops
// blank turns. With userFirst, a log that opens with an assistant turn gets
// openingCue prepended.
func alternate(msgs []Message, userFirst bool) []Message {
	out := make([]Message, 0, len(msgs)+1)
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + text
			continue
		}
		out = append(out, Message{Role: m.Role, Content: text})
	}
	if userFirst && len(out) > 0 && out[0].Role == RoleAssistant {
		out = append([]Message{{Role: RoleUser, Content: openingCue}}, out...)
	}
	return out
}
