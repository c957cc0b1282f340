// Package lead implements the conversation-to-lead extraction core: turn
// classification, field extraction and validation, and the per-session state
// machine that drives collection and notification.
package lead

import (
	"strings"
)

// Intent is the classification of a visitor turn while browsing.
type Intent int

const (
	// IntentInformational turns are answered from the FAQ.
	IntentInformational Intent = iota
	// IntentLead turns express a clear desire to be contacted.
	IntentLead
)

// Classifier decides whether a browsing turn expresses lead intent. It is a
// single-purpose interface so the policy can be swapped (e.g. for an
// oracle-backed classifier) without touching the state machine.
type Classifier interface {
	Classify(text string) Intent
}

// KeywordClassifier is the default pattern-based classifier. Triggers are
// deliberately strict so normal questions never start the lead flow.
type KeywordClassifier struct{}

// Strict single-word triggers: only when the visitor literally types these.
var strictTriggers = map[string]struct{}{
	"info":    {},
	"my info": {},
}

var explicitTriggers = []string{
	"can i leave my info",
	"can i give you my info",
	"can i give u my info",
	"take my info",
	"take my information",
	"i want to give you my info",
	"i want to leave my info",
	"i want to give u my info",
	"i want to give u info",
	"leave my info",
	"leave my information",
	"give you my info",
	"give u my info",
	"share my info",
	"pass my info",
	"give my info",
	"give my information",
	"here is my info",
	"here's my info",
	"talk to a human",
	"speak to a human",
	"have someone call me",
	"have somebody call me",
	"have the office call me",
	"call me back",
	"can someone call me",
	"can somebody call me",
}

// bookingTriggers are declarative requests to book or be called back. Unlike
// a question ("do you book cleanings?"), stating the request outright is
// contact intent and starts collection directly.
var bookingTriggers = []string{
	"i want to book",
	"i'd like to book",
	"id like to book",
	"i would like to book",
	"book an appointment",
	"book an appt",
	"i want to schedule",
	"i'd like to schedule",
	"id like to schedule",
	"i would like to schedule",
	"schedule an appointment",
	"make an appointment",
	"request a call",
	"request a callback",
}

// inquiryWords mark a message as a normal question about the business, which
// must never trigger the lead flow on its own.
var inquiryWords = []string{
	"offer",
	"offers",
	"do you have",
	"do you do",
	"price",
	"prices",
	"cost",
	"hours",
	"open",
	"close",
	"location",
	"where are you",
	"emergency",
	"tooth",
	"pain",
	"insurance",
	"whitening",
	"cleaning",
	"cleanings",
}

var infoWords = []string{"info", "information", "details", "contact"}

var givingVerbs = []string{"leave", "give", "share", "pass", "provide", "send", "take"}

// Classify reports whether text expresses lead intent.
func (KeywordClassifier) Classify(text string) Intent {
	txt := strings.ToLower(strings.TrimSpace(text))
	if txt == "" {
		return IntentInformational
	}

	if _, ok := strictTriggers[txt]; ok {
		return IntentLead
	}

	for _, p := range explicitTriggers {
		if strings.Contains(txt, p) {
			return IntentLead
		}
	}

	// A trailing question mark means a question, not a handoff.
	if strings.HasSuffix(txt, "?") {
		return IntentInformational
	}

	// Checked after the question guard and before inquiry words: "i want to
	// book a cleaning" is a booking request even though "cleaning" alone
	// reads as an inquiry.
	for _, p := range bookingTriggers {
		if strings.Contains(txt, p) {
			return IntentLead
		}
	}

	for _, w := range inquiryWords {
		if strings.Contains(txt, w) {
			return IntentInformational
		}
	}

	// Looser trigger: an info word combined with a clear giving verb.
	hasInfoWord := false
	for _, w := range infoWords {
		if strings.Contains(txt, w) {
			hasInfoWord = true
			break
		}
	}
	if hasInfoWord {
		for _, v := range givingVerbs {
			if strings.Contains(txt, v) {
				return IntentLead
			}
		}
	}

	return IntentInformational
}

var yesWords = []string{
	"yes", "yeah", "yep", "sure", "yes please", "please do",
	"that would be great", "ok", "okay", "sounds good",
}

var noWords = []string{
	"no", "nope", "nah", "not now", "not yet",
	"i'm good", "im good", "i am good", "i'm okay", "im okay",
}

// LooksLikeYes matches an affirmative answer to a pending call offer.
func LooksLikeYes(text string) bool {
	return matchesWordList(text, yesWords)
}

// LooksLikeNo matches a declining answer to a pending call offer.
func LooksLikeNo(text string) bool {
	return matchesWordList(text, noWords)
}

func matchesWordList(text string, words []string) bool {
	txt := strings.ToLower(strings.TrimSpace(text))
	if txt == "" {
		return false
	}
	for _, w := range words {
		if txt == w || strings.HasPrefix(txt, w+" ") {
			return true
		}
	}
	return false
}

var painKeywords = []string{
	"pain", "hurts", "hurt", "ache", "aching", "injury", "injured",
	"emergency", "swollen", "swelling", "can't sleep", "cant sleep",
	"stiff", "spasm", "spasms", "numb", "numbness", "tingling", "tingly",
}

var appointmentKeywords = []string{
	"appointment", "appt", "appts", "visit", "come in", "come by",
	"see someone", "see the doctor", "see the dentist",
	"see the chiropractor", "see the chiro", "schedule", "book",
}

// SuggestsCallOffer reports whether a browsing turn sounds like a pain or
// appointment situation worth following up with a call offer.
func SuggestsCallOffer(text string) bool {
	txt := strings.ToLower(strings.TrimSpace(text))
	if txt == "" {
		return false
	}
	for _, k := range painKeywords {
		if strings.Contains(txt, k) {
			return true
		}
	}
	for _, k := range appointmentKeywords {
		if strings.Contains(txt, k) {
			return true
		}
	}
	return false
}
