package usecase

import (
	"regexp"
	"strings"
)

// Escalation detection is a deliberately transparent rule set rather than a
// second model call: it runs deterministically and cheaply on every turn,
// and each table can be tuned without touching pipeline control flow.

// escalationReplyTerms flag an assistant reply that talks about looping in
// a human, apologizes for a limitation, or uses problem/error vocabulary.
// Note this also fires when the assistant merely explains that escalation
// exists; whoever owns the escalation threshold owns that tradeoff.
var escalationReplyTerms = []string{
	"escalat",
	"human agent",
	"admin",
	"speak to someone",
	"contact",
	"urgent",
	"problem",
	"issue",
	"complaint",
	"help me",
	"cannot",
	"doesn't work",
	"not working",
	"error",
	"broken",
	"unable to",
}

// sensitiveMessageTerms flag user messages touching topics that need human
// judgment regardless of what the assistant replied.
var sensitiveMessageTerms = []string{
	"payment",
	"charge",
	"refund",
	"account",
	"password",
	"login",
	"access denied",
	"privacy",
	"personal",
	"discrimination",
	"harassment",
}

// repeatedPunctuation matches two or more consecutive terminal marks.
var repeatedPunctuation = regexp.MustCompile(`[!?]{2,}`)

// minShoutLength keeps short acronyms ("FAQ", "ASAP") from reading as shouting.
const minShoutLength = 10

// DetectEscalation reports whether the exchange should be flagged for human
// follow-up. Positive when the reply contains escalation vocabulary, the
// message touches a sensitive topic, or the message shows textual
// frustration signals.
func DetectEscalation(reply, userMessage string) bool {
	return replySuggestsEscalation(reply) ||
		containsSensitiveTopic(userMessage) ||
		showsFrustration(userMessage)
}

func replySuggestsEscalation(reply string) bool {
	return containsAny(strings.ToLower(reply), escalationReplyTerms)
}

func containsSensitiveTopic(message string) bool {
	return containsAny(strings.ToLower(message), sensitiveMessageTerms)
}

func showsFrustration(message string) bool {
	if repeatedPunctuation.MatchString(message) {
		return true
	}
	return len(message) > minShoutLength &&
		message == strings.ToUpper(message) &&
		message != strings.ToLower(message)
}

func containsAny(haystack string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
