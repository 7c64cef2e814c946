package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"help-assistant/internal/domain"
)

func basePromptContext() promptContext {
	return promptContext{
		userName:    "Amina",
		userRole:    "regular",
		tier:        "family",
		currentPage: "Events",
		userMessage: "when is the next event",
	}
}

func TestComposePrompt_Sections(t *testing.T) {
	p := composePrompt(basePromptContext())

	for _, section := range []string{
		"# USER CONTEXT",
		"# YOUR CAPABILITIES",
		"# KNOWLEDGE BASE CONTEXT",
		"# CONVERSATION HISTORY",
		"# CURRENT USER MESSAGE",
		"# RESPONSE GUIDELINES",
		"# ESCALATION TRIGGERS",
		"# YOUR RESPONSE",
	} {
		require.Contains(t, p, section)
	}
	require.Contains(t, p, "- **Name:** Amina")
	require.Contains(t, p, "- **Role:** regular (Community Member)")
	require.Contains(t, p, "- **Membership:** family tier")
	require.Contains(t, p, "- **Current Location:** Events")
	require.Contains(t, p, "Amina: when is the next event")
}

func TestComposePrompt_IsDeterministic(t *testing.T) {
	ctx := basePromptContext()
	require.Equal(t, composePrompt(ctx), composePrompt(ctx))
}

func TestComposePrompt_StaffStanding(t *testing.T) {
	ctx := basePromptContext()
	ctx.userRole = "board"
	require.Contains(t, composePrompt(ctx), "- **Role:** board (Staff Member)")
}

func TestComposePrompt_DefaultsPageWhenMissing(t *testing.T) {
	ctx := basePromptContext()
	ctx.currentPage = ""
	require.Contains(t, composePrompt(ctx), "- **Current Location:** General Help")
}

func TestComposePrompt_NoKnowledgeIsStatedExplicitly(t *testing.T) {
	p := composePrompt(basePromptContext())
	require.Contains(t, p, "*No specific knowledge base articles found for this query.*")
	require.NotContains(t, p, "Relevant Articles")
}

func TestComposePrompt_KnowledgeBlock(t *testing.T) {
	ctx := basePromptContext()
	ctx.knowledge = []domain.KnowledgeArticle{
		{ID: "a1", Title: "Event points", Content: "Points are earned per event.", Category: "Events"},
		{ID: "a2", Title: "Leaderboards", Content: "Rankings refresh nightly."},
	}
	p := composePrompt(ctx)
	require.Contains(t, p, "**Relevant Articles from Knowledge Base:**")
	require.Contains(t, p, "**Article: Event points**\nCategory: Events\nContent: Points are earned per event.")
	require.Contains(t, p, "**Article: Leaderboards**\nCategory: General")
	require.Contains(t, p, "\n---\n")
}

func TestHistorySection_EmptyHistory(t *testing.T) {
	require.Equal(t, "*This is the start of the conversation.*", historySection(nil, "Amina"))
}

func TestHistorySection_TrimsTrailingUserMessage(t *testing.T) {
	history := []domain.Message{
		{Sender: domain.SenderUser, Content: "earlier question"},
		{Sender: domain.SenderAssistant, Content: "earlier answer"},
		{Sender: domain.SenderUser, Content: "current question"},
	}
	got := historySection(history, "Amina")
	require.Contains(t, got, "Amina: earlier question")
	require.Contains(t, got, "You: earlier answer")
	require.NotContains(t, got, "current question")
}

func TestHistorySection_WindowIsFiveOfTenFetched(t *testing.T) {
	var history []domain.Message
	for i := 1; i <= 10; i++ {
		sender := domain.SenderUser
		if i%2 == 0 {
			sender = domain.SenderAssistant
		}
		history = append(history, domain.Message{Sender: sender, Content: fmt.Sprintf("turn %d", i)})
	}
	got := historySection(history, "Amina")
	require.Equal(t, promptHistoryWindow, len(strings.Split(got, "\n")))
	require.NotContains(t, got, "turn 5")
	require.Contains(t, got, "turn 6")
	require.Contains(t, got, "turn 10")
}
