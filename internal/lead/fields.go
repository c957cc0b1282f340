package lead

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldKind determines how a required field is extracted and validated.
type FieldKind int

const (
	// KindText accepts any non-empty trimmed text (name, reason, ...).
	KindText FieldKind = iota
	// KindPhone requires a minimum digit count after stripping formatting.
	KindPhone
)

// KindOf maps a required-field name to its extraction kind. Any field whose
// name mentions phone is treated as a phone number; everything else is free
// text.
func KindOf(field string) FieldKind {
	if strings.Contains(strings.ToLower(field), "phone") {
		return KindPhone
	}
	return KindText
}

// phoneCandidate matches a run of digits with common formatting characters
// (spaces, dashes, dots, parentheses, leading plus).
var phoneCandidate = regexp.MustCompile(`\+?\(?\d[\d\-\.\s\(\)]*\d`)

var digitsOnly = regexp.MustCompile(`\D`)

// FieldPolicy is the configurable validation policy for lead fields. The
// exact thresholds are deployment knobs rather than hard-coded rules.
type FieldPolicy struct {
	PhoneMinDigits int
	PhoneMaxDigits int
}

// DefaultFieldPolicy matches the configuration defaults.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{PhoneMinDigits: 7, PhoneMaxDigits: 15}
}

// NormalizePhone strips formatting and reports whether the remaining digit
// count satisfies the policy. A leading + survives normalization.
func (p FieldPolicy) NormalizePhone(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	plus := strings.HasPrefix(trimmed, "+")
	digits := digitsOnly.ReplaceAllString(trimmed, "")
	if len(digits) < p.PhoneMinDigits || len(digits) > p.PhoneMaxDigits {
		return "", false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}

// extractPhone finds the first valid phone number in text. It returns the
// normalized number, the text with the matched span removed, and whether a
// valid number was found.
func (p FieldPolicy) extractPhone(text string) (normalized, remainder string, ok bool) {
	for _, loc := range phoneCandidate.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		if norm, valid := p.NormalizePhone(candidate); valid {
			return norm, text[:loc[0]] + text[loc[1]:], true
		}
	}
	return "", text, false
}

// phoneLeadIns are filler phrases a visitor wraps around a phone number.
// They are stripped so "my number is 555-1234" never pollutes a text field.
var phoneLeadIns = []string{
	"my number is", "my phone number is", "my phone is", "my cell is",
	"you can reach me at", "reach me at", "call me at", "it's", "its",
}

// cleanText trims whitespace and stray separators left behind when a phone
// span was cut out of the turn.
func cleanText(text string) string {
	text = strings.Trim(text, " \t\r\n,;:-")
	lower := strings.ToLower(text)
	for _, lead := range phoneLeadIns {
		if lower == lead {
			return ""
		}
	}
	return text
}

// Fill attempts to fill missing required fields from a single turn. Phone
// fields are extracted first (a visitor often states name and phone
// together); the remaining text then fills the pending field when it is
// free text. Already-collected fields are never overwritten. Returns the
// names of fields filled by this turn.
func (p FieldPolicy) Fill(turnText string, required []string, collected map[string]string, pendingIndex int) []string {
	var filled []string
	remainder := turnText

	// Pull phone numbers out first so formatting digits never leak into a
	// text field.
	for _, f := range required {
		if _, ok := collected[f]; ok || KindOf(f) != KindPhone {
			continue
		}
		norm, rest, ok := p.extractPhone(remainder)
		if !ok {
			continue
		}
		collected[f] = norm
		remainder = rest
		filled = append(filled, f)
	}

	if pendingIndex < len(required) {
		pending := required[pendingIndex]
		if _, ok := collected[pending]; !ok && KindOf(pending) == KindText {
			if value := cleanText(remainder); value != "" {
				collected[pending] = value
				filled = append(filled, pending)
			}
		}
	}

	return filled
}

// PromptFor returns the solicitation message for a field.
func PromptFor(field string) string {
	switch field {
	case "name":
		return "Great! Could I get your name?"
	case "phone":
		return "What's the best phone number to reach you at?"
	case "reason":
		return "And what's the reason for your visit?"
	default:
		return fmt.Sprintf("Could you share your %s?", strings.ReplaceAll(field, "_", " "))
	}
}

// ClarifyFor returns the re-prompt used when extraction for a field failed.
func (p FieldPolicy) ClarifyFor(field string) string {
	if KindOf(field) == KindPhone {
		return fmt.Sprintf("Hmm, that doesn't look like a phone number I can use. Could you share a number with at least %d digits?", p.PhoneMinDigits)
	}
	return fmt.Sprintf("Sorry, I didn't quite catch your %s. Could you try again?", strings.ReplaceAll(field, "_", " "))
}
