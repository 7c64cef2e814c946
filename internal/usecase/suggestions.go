package usecase

import (
	"strings"

	"help-assistant/internal/domain"
)

// Follow-up suggestion sets. Escalation takes priority over topic; topics
// are matched in order and the first hit wins, no merging.

var escalationSuggestions = []string{
	"Escalate to human agent",
	"Tell me more about this issue",
	"View help articles",
}

type topicGroup struct {
	keywords    []string
	suggestions []string
}

var topicGroups = []topicGroup{
	{
		keywords: []string{"volunteer"},
		suggestions: []string{
			"Show available volunteer opportunities",
			"How do volunteer badges work?",
			"Tell me about volunteer requirements",
		},
	},
	{
		keywords: []string{"event"},
		suggestions: []string{
			"Show upcoming events",
			"How do I earn event points?",
			"Tell me about event registration",
		},
	},
	{
		keywords: []string{"membership", "donate"},
		suggestions: []string{
			"Explain membership tiers",
			"How do I update my profile?",
			"Tell me about donation options",
		},
	},
	{
		keywords: []string{"badge", "achievement"},
		suggestions: []string{
			"Show my achievements",
			"How do I earn more badges?",
			"What are the available contests?",
		},
	},
}

var staffDefaultSuggestions = []string{
	"Help me with admin functions",
	"Show me analytics",
	"Explain admin features",
}

var memberDefaultSuggestions = []string{
	"What else can you help with?",
	"Show me volunteer opportunities",
	"Tell me about upcoming events",
}

// GenerateSuggestions returns the follow-up action labels for a completed
// turn. Escalated turns get the fixed escalation set regardless of topic.
func GenerateSuggestions(userMessage string, escalated bool, role string) []string {
	if escalated {
		return escalationSuggestions
	}

	message := strings.ToLower(userMessage)
	for _, group := range topicGroups {
		if containsAny(message, group.keywords) {
			return group.suggestions
		}
	}

	if domain.PrivilegedRole(role) {
		return staffDefaultSuggestions
	}
	return memberDefaultSuggestions
}
