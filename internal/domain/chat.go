package domain

import "time"

// Sender roles for persisted messages.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Session is a caller-scoped conversation thread. Created elsewhere; this
// service only reads it and bumps LastMessageAt.
type Session struct {
	PK            string
	SK            string
	SessionID     string
	UserID        string
	ContextData   map[string]string
	LastMessageAt string
}

// Message is a single persisted conversation entry. Append-only and
// immutable once written; ordered by SK (creation time) within a session.
type Message struct {
	PK        string
	SK        string
	MessageID string
	SessionID string
	Sender    string
	Content   string
	Metadata  *MessageMetadata
	CreatedAt time.Time
	TTL       int64
}

// MessageMetadata is attached to assistant messages only.
type MessageMetadata struct {
	Model               string       `json:"model"`
	ArticlesUsed        []ArticleRef `json:"kb_articles_used,omitempty"`
	EscalationSuggested bool         `json:"escalation_suggested"`
	UserRole            string       `json:"user_role,omitempty"`
	ContextPage         string       `json:"context_page,omitempty"`
	Timestamp           string       `json:"timestamp"`
}

// ArticleRef identifies a knowledge article cited in a reply.
type ArticleRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CallerProfile carries the personalization attributes of the caller.
// Read-only input; a missing profile degrades to DefaultProfile.
type CallerProfile struct {
	Role string
	Name string
	Tier string
}

// DefaultProfile is used when the caller has no profile record.
func DefaultProfile() CallerProfile {
	return CallerProfile{Role: "regular", Name: "Member", Tier: "standard"}
}

// PrivilegedRole reports whether role grants staff-level knowledge access.
func PrivilegedRole(role string) bool {
	return role == "admin" || role == "board"
}

// KnowledgeArticle is a stored, access-tagged document used to ground
// generated replies.
type KnowledgeArticle struct {
	ID          string
	Title       string
	Content     string
	Category    string
	AccessLevel string
	Published   bool
}
