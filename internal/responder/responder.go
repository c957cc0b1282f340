// Package responder turns visitor questions into grounded answers using the
// client's FAQ and tone bundle.
package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frontdeskai/frontdesk/internal/domain"
	"github.com/frontdeskai/frontdesk/internal/oracle"
)

// FallbackReply is returned whenever the oracle call fails or times out. The
// conversation must never stall on an upstream outage, so oracle errors are
// absorbed here and never propagated.
const FallbackReply = "I'm sorry, something went wrong generating a reply. Please try again."

// ackReply answers pure acknowledgement turns without an oracle round trip.
const ackReply = "You're very welcome! If you have any other questions, just ask."

// ackPhrases are treated as acknowledgements only when the whole message is
// essentially just that phrase.
var ackPhrases = map[string]struct{}{
	"thanks":        {},
	"thank you":     {},
	"thx":           {},
	"ok":            {},
	"okay":          {},
	"got it":        {},
	"that helps":    {},
	"perfect":       {},
	"sounds good":   {},
	"awesome":       {},
	"great":         {},
	"cool":          {},
	"sweet":         {},
	"appreciate it": {},
}

// Responder generates grounded answers. It never mutates session state and
// never returns an error; upstream failures become FallbackReply.
type Responder struct {
	completer oracle.Completer
	logger    *slog.Logger
}

// New creates a responder delegating generation to completer.
func New(completer oracle.Completer, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{completer: completer, logger: logger}
}

// IsBriefAck detects short messages like "thanks" or "got it" that deserve a
// quick friendly reply instead of a model call.
func IsBriefAck(message string) bool {
	txt := strings.ToLower(strings.TrimSpace(message))
	if txt == "" || len(txt) > 30 {
		return false
	}
	_, ok := ackPhrases[txt]
	return ok
}

// Answer produces a reply to visitorText grounded in the client bundle.
func (r *Responder) Answer(ctx context.Context, p *domain.ClientProfile, history []domain.Message, visitorText string) string {
	if IsBriefAck(visitorText) {
		return ackReply
	}
	if r.completer == nil {
		return FallbackReply
	}

	system := buildSystemPrompt(p)
	prompt := buildUserPrompt(history, visitorText)

	text, err := r.completer.Complete(ctx, system, prompt)
	if err != nil {
		r.logger.Warn("oracle call failed, using fallback reply",
			"client_id", p.ClientID, "error", err)
		return FallbackReply
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReply
	}
	return text
}

// buildSystemPrompt assembles the front-desk persona prompt. The FAQ and
// tone text are internal grounding material and must never be echoed back.
func buildSystemPrompt(p *domain.ClientProfile) string {
	var b strings.Builder

	b.WriteString("You are the AI assistant for this local business, acting like a warm, professional front-desk person.\n\n")
	b.WriteString("You ONLY answer based on the FAQ below. Do NOT invent prices, medical advice, business policies, or anything not clearly supported by the FAQ.\n\n")

	b.WriteString("FAQ / BUSINESS INFO (INTERNAL ONLY, DO NOT SHOW TO CUSTOMER):\n")
	b.WriteString("--------------------\n")
	b.WriteString(p.FAQText)
	b.WriteString("\n--------------------\n")

	if p.ToneDescriptor != "" {
		b.WriteString("\nTONE / VOICE GUIDELINES (INTERNAL ONLY):\n")
		b.WriteString(p.ToneDescriptor)
		b.WriteString("\n--------------------\n")
	}

	b.WriteString(`
Behavior:
- Be concise: usually 1-3 sentences, calm, friendly, and confident.
- Use simple language a stressed or confused person can understand.
- If the answer isn't in the FAQ, say the best next step is to contact the office directly.
- If the customer mentions pain or an urgent issue, acknowledge it with empathy and suggest contacting the business as the best next step.
- For list requests, reply with short clean bullet points of only the most relevant items.
- Talk like a real front-desk human, not a robot. Do NOT mention that you are an AI or that you are using a prompt.`)

	return b.String()
}

func buildUserPrompt(history []domain.Message, visitorText string) string {
	if len(history) == 0 {
		return visitorText
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("\nCustomer message:\n")
	b.WriteString(visitorText)
	return b.String()
}
