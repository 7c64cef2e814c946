package usecase

import (
	"fmt"
	"strings"

	"help-assistant/internal/domain"
)

// promptHistoryWindow is how many trailing history messages are replayed in
// the prompt. Deliberately smaller than the fetch limit: recency is traded
// for prompt size.
const promptHistoryWindow = 5

type promptContext struct {
	userName    string
	userRole    string
	tier        string
	currentPage string
	knowledge   []domain.KnowledgeArticle
	history     []domain.Message
	userMessage string
}

// composePrompt deterministically renders the single instruction block sent
// upstream. Pure function of its inputs; no storage or network access.
func composePrompt(ctx promptContext) string {
	return strings.Join([]string{
		"You are an intelligent AI assistant for a community engagement portal. Your goal is to provide helpful, accurate, and contextual assistance to community members.",
		"",
		"# USER CONTEXT",
		userContextSection(ctx),
		"",
		"# YOUR CAPABILITIES",
		capabilityCatalogue(),
		"",
		"# KNOWLEDGE BASE CONTEXT",
		knowledgeSection(ctx.knowledge),
		"",
		"# CONVERSATION HISTORY",
		historySection(ctx.history, ctx.userName),
		"",
		"# CURRENT USER MESSAGE",
		fmt.Sprintf("%s: %s", ctx.userName, ctx.userMessage),
		"",
		"# RESPONSE GUIDELINES",
		responseGuidelines(),
		"",
		"# ESCALATION TRIGGERS",
		escalationTriggers(),
		"",
		"# YOUR RESPONSE",
		fmt.Sprintf("Provide a helpful, contextual response to %s's message above. If escalation is needed, politely explain why and assure them an admin will help soon.", ctx.userName),
	}, "\n")
}

func userContextSection(ctx promptContext) string {
	standing := "(Community Member)"
	if domain.PrivilegedRole(ctx.userRole) {
		standing = "(Staff Member)"
	}
	page := ctx.currentPage
	if strings.TrimSpace(page) == "" {
		page = "General Help"
	}
	return strings.Join([]string{
		fmt.Sprintf("- **Name:** %s", ctx.userName),
		fmt.Sprintf("- **Role:** %s %s", ctx.userRole, standing),
		fmt.Sprintf("- **Membership:** %s tier", ctx.tier),
		fmt.Sprintf("- **Current Location:** %s", page),
	}, "\n")
}

func capabilityCatalogue() string {
	return strings.Join([]string{
		"## 1. VOLUNTEER MANAGEMENT",
		"- Guide users through volunteer opportunity discovery and application",
		"- Explain the badge and achievement system",
		"- Help track volunteer hours and progress",
		"- Assist with volunteer scheduling, waivers, and requirements",
		"",
		"## 2. EVENT MANAGEMENT",
		"- Help users discover and register for upcoming events",
		"- Explain event gamification features (points, badges, leaderboards)",
		"- Provide event details, schedules, and attendance tracking",
		"",
		"## 3. MEMBERSHIP & PROFILE",
		"- Explain membership tiers (Standard, Family, Volunteer) and benefits",
		"- Help users update their profiles and preferences",
		"- Guide users through membership renewal and payment schedules",
		"",
		"## 4. COMMUNICATION PORTAL",
		"- Explain announcement and notification systems",
		"- Help users manage communication preferences and family members",
		"",
		"## 5. ACHIEVEMENTS & GAMIFICATION",
		"- Explain badges, milestones, contests, and rewards",
		"- Help users track their progress",
		"",
		"## 6. DONATIONS",
		"- Guide users through one-time and recurring donation processes",
		"- Answer questions about payment methods and tax documentation",
	}, "\n")
}

func knowledgeSection(articles []domain.KnowledgeArticle) string {
	if len(articles) == 0 {
		// Stated explicitly so the model does not fabricate citations.
		return "*No specific knowledge base articles found for this query.*"
	}
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		category := a.Category
		if category == "" {
			category = "General"
		}
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("**Article: %s**", a.Title),
			fmt.Sprintf("Category: %s", category),
			fmt.Sprintf("Content: %s", a.Content),
		}, "\n"))
	}
	return "**Relevant Articles from Knowledge Base:**\n" + strings.Join(blocks, "\n---\n")
}

// historySection replays the trailing window of prior messages oldest-first.
// The just-persisted user message is rendered separately as the current
// message, so it is trimmed off the end of the history slice here.
func historySection(history []domain.Message, userName string) string {
	if n := len(history); n > 0 && history[n-1].Sender == domain.SenderUser {
		history = history[:n-1]
	}
	if len(history) > promptHistoryWindow {
		history = history[len(history)-promptHistoryWindow:]
	}
	if len(history) == 0 {
		return "*This is the start of the conversation.*"
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := userName
		if m.Sender == domain.SenderAssistant {
			speaker = "You"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}

func responseGuidelines() string {
	return strings.Join([]string{
		"1. **Be Personalized:** Use the user's name and acknowledge their role/membership tier when relevant",
		"2. **Be Contextual:** Reference their current page location and previous conversation if applicable",
		"3. **Be Specific:** Use knowledge base articles when available, and cite them naturally in your response",
		"4. **Be Concise:** Keep responses clear and to the point (2-4 paragraphs maximum)",
		"5. **Be Actionable:** Provide clear next steps or guidance",
		"6. **Be Professional Yet Friendly:** Maintain a warm, welcoming tone appropriate for a community organization",
		"7. **Be Accurate:** If you don't know something or it requires admin access, admit it and suggest escalation",
	}, "\n")
}

func escalationTriggers() string {
	return strings.Join([]string{
		"Suggest escalation to a human admin if:",
		"- The question requires access to private user data or admin functions",
		"- The issue involves payment problems, account access issues, or security concerns",
		"- The request needs human judgment or approval (e.g., special accommodations)",
		"- You cannot find relevant information after checking the knowledge base",
		"- The user explicitly asks to speak with a human",
		"- The query involves sensitive personal matters requiring individual care",
	}, "\n")
}
