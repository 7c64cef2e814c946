package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"help-assistant/internal/domain"
	"help-assistant/internal/repository"
	"help-assistant/internal/retry"
)

const defaultHistoryFetchLimit = 10

// LLMClient generates a reply for a single rendered prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Store is the persistence gateway consumed by the pipeline. Satisfied by
// *repository.Client.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	GetProfile(ctx context.Context, userID string) (domain.CallerProfile, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) error
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	ListPublishedArticles(ctx context.Context) ([]domain.KnowledgeArticle, error)
}

// ChatService orchestrates one conversational turn: validate the session,
// assemble context, retrieve knowledge, compose the prompt, invoke the
// model under the retry policy, classify for escalation, and persist.
type ChatService struct {
	store             Store
	llm               LLMClient
	policy            retry.Policy
	historyFetchLimit int
	logger            *slog.Logger
}

type SendInput struct {
	SessionID string
	UserID    string
	Message   string
}

type SendOutput struct {
	Message             domain.Message
	Suggestions         []string
	EscalationSuggested bool
}

type ChatOption func(*ChatService)

func WithRetryPolicy(p retry.Policy) ChatOption {
	return func(s *ChatService) {
		s.policy = p
	}
}

func WithHistoryFetchLimit(n int) ChatOption {
	return func(s *ChatService) {
		if n > 0 {
			s.historyFetchLimit = n
		}
	}
}

func WithLogger(l *slog.Logger) ChatOption {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewChatService(store Store, llm LLMClient, opts ...ChatOption) (*ChatService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	s := &ChatService{
		store:             store,
		llm:               llm,
		policy:            retry.DefaultPolicy(),
		historyFetchLimit: defaultHistoryFetchLimit,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send runs the full pipeline for one inbound user message. The user
// message is persisted before the upstream call is attempted; the
// assistant reply is persisted only if the call ultimately succeeds.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	message := strings.TrimSpace(in.Message)
	userID := strings.TrimSpace(in.UserID)
	if sessionID == "" || message == "" {
		return SendOutput{}, newError(ErrorInvalidRequest, "missing_session_or_message", nil)
	}
	if userID == "" {
		return SendOutput{}, newError(ErrorUnauthorized, "missing_caller", nil)
	}

	// Ownership check runs before any write or upstream call so one
	// caller can never pull another caller's context into a prompt.
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SendOutput{}, newError(ErrorNotFound, "session_not_found", err)
		}
		return SendOutput{}, newError(ErrorPersistenceFailure, "session_read_error", err)
	}
	if session.UserID != userID {
		return SendOutput{}, newError(ErrorUnauthorized, "session_owned_by_other_caller", nil)
	}

	profile := s.loadProfile(ctx, userID)

	userMsg := repository.NewMessage(sessionID, newUUID(), domain.SenderUser, message, now())
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		// An unrecorded message must never receive a generated reply.
		return SendOutput{}, newError(ErrorPersistenceFailure, "user_message_write_error", err)
	}

	history, err := s.store.GetHistory(ctx, sessionID, s.historyFetchLimit)
	if err != nil {
		return SendOutput{}, newError(ErrorPersistenceFailure, "history_read_error", err)
	}

	knowledge := s.retrieveKnowledge(ctx, message, profile.Role)

	prompt := composePrompt(promptContext{
		userName:    profile.Name,
		userRole:    profile.Role,
		tier:        profile.Tier,
		currentPage: session.ContextData["current_page"],
		knowledge:   knowledge,
		history:     history,
		userMessage: message,
	})

	reply, err := s.invoke(ctx, prompt)
	if err != nil {
		return SendOutput{}, newError(ErrorUpstreamExhausted, "generation_failed", err)
	}

	escalated := DetectEscalation(reply, message)

	assistantMsg := repository.NewMessage(sessionID, newUUID(), domain.SenderAssistant, reply, now())
	assistantMsg.Metadata = &domain.MessageMetadata{
		Model:               s.llm.Model(),
		ArticlesUsed:        articleRefs(knowledge),
		EscalationSuggested: escalated,
		UserRole:            profile.Role,
		ContextPage:         session.ContextData["current_page"],
		Timestamp:           assistantMsg.CreatedAt.Format(time.RFC3339),
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return SendOutput{}, newError(ErrorPersistenceFailure, "assistant_message_write_error", err)
	}

	if err := s.store.TouchSession(ctx, sessionID, assistantMsg.CreatedAt); err != nil {
		s.logger.Warn("session activity bump failed", "sessionId", sessionID, "err", err)
	}

	return SendOutput{
		Message:             assistantMsg,
		Suggestions:         GenerateSuggestions(message, escalated, profile.Role),
		EscalationSuggested: escalated,
	}, nil
}

// loadProfile degrades to the default profile when the record is missing or
// the read fails: reduced personalization, not an outage.
func (s *ChatService) loadProfile(ctx context.Context, userID string) domain.CallerProfile {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("profile read failed, using defaults", "userId", userID, "err", err)
		}
		return domain.DefaultProfile()
	}
	return profile
}

// retrieveKnowledge degrades to the empty set on a store failure; "no
// knowledge" is a valid prompt state and is stated explicitly there.
func (s *ChatService) retrieveKnowledge(ctx context.Context, message, role string) []domain.KnowledgeArticle {
	articles, err := s.store.ListPublishedArticles(ctx)
	if err != nil {
		s.logger.Warn("knowledge retrieval failed, continuing without articles", "err", err)
		return nil
	}
	return matchKnowledge(articles, message, role)
}

// invoke calls the model under the retry policy. An empty reply text is a
// failure, never a success with empty content.
func (s *ChatService) invoke(ctx context.Context, prompt string) (string, error) {
	var reply string
	err := s.policy.Do(ctx, func(attemptCtx context.Context) error {
		text, genErr := s.llm.Generate(attemptCtx, prompt)
		if genErr != nil {
			return genErr
		}
		reply = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Test hooks.
var (
	newUUID = func() string { return uuid.NewString() }
	now     = func() time.Time { return time.Now().UTC() }
)
