package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"help-assistant/internal/domain"
	"help-assistant/internal/usecase"
)

// ChatUseCase is the pipeline entry point consumed by the handler.
type ChatUseCase interface {
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
}

// Handler adapts API Gateway proxy events to the chat pipeline.
type Handler struct {
	chat ChatUseCase
}

func NewHandler(chat ChatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	return &Handler{chat: chat}, nil
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type messageView struct {
	ID        string                  `json:"id"`
	SessionID string                  `json:"session_id"`
	Sender    string                  `json:"sender_type"`
	Content   string                  `json:"content"`
	Metadata  *domain.MessageMetadata `json:"metadata,omitempty"`
	CreatedAt string                  `json:"created_at"`
}

type chatResponseData struct {
	Message             messageView `json:"message"`
	Suggestions         []string    `json:"suggestions"`
	EscalationSuggested bool        `json:"escalation_suggested"`
}

type chatResponse struct {
	Data chatResponseData `json:"data"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// Handle processes one chat-message request.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)

	userID := callerID(event)
	if userID == "" {
		return respondError(http.StatusUnauthorized, usecase.ErrorUnauthorized, "missing caller identity", correlationID), nil
	}

	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return respondError(http.StatusBadRequest, usecase.ErrorInvalidRequest, "request body must be JSON with sessionId and message", correlationID), nil
	}

	out, err := h.chat.Send(ctx, usecase.SendInput{
		SessionID: req.SessionID,
		UserID:    userID,
		Message:   req.Message,
	})
	if err != nil {
		status, code := mapError(err)
		return respondError(status, code, err.Error(), correlationID), nil
	}

	body := chatResponse{Data: chatResponseData{
		Message:             toMessageView(out.Message),
		Suggestions:         out.Suggestions,
		EscalationSuggested: out.EscalationSuggested,
	}}
	return respondJSON(http.StatusOK, body, correlationID), nil
}

func toMessageView(m domain.Message) messageView {
	return messageView{
		ID:        m.MessageID,
		SessionID: m.SessionID,
		Sender:    m.Sender,
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
}

// callerID extracts the authenticated caller from the API Gateway
// authorizer context: JWT authorizers surface claims under "claims",
// custom authorizers may set "sub" directly.
func callerID(event events.APIGatewayProxyRequest) string {
	auth := event.RequestContext.Authorizer
	if auth == nil {
		return ""
	}
	if claims, ok := auth["claims"].(map[string]interface{}); ok {
		if sub, ok := claims["sub"].(string); ok {
			return strings.TrimSpace(sub)
		}
	}
	if sub, ok := auth["sub"].(string); ok {
		return strings.TrimSpace(sub)
	}
	return ""
}

func resolveCorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Correlation-Id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func mapError(err error) (int, usecase.ErrorCode) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidRequest:
		return http.StatusBadRequest, ucErr.Code
	case usecase.ErrorUnauthorized:
		return http.StatusForbidden, ucErr.Code
	case usecase.ErrorNotFound:
		return http.StatusNotFound, ucErr.Code
	case usecase.ErrorUpstreamExhausted:
		return http.StatusBadGateway, ucErr.Code
	case usecase.ErrorPersistenceFailure:
		return http.StatusInternalServerError, ucErr.Code
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
}

func respondJSON(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"encode response"}}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(raw),
	}
}

func respondError(status int, code usecase.ErrorCode, message, correlationID string) events.APIGatewayProxyResponse {
	return respondJSON(status, errorResponse{Error: errorBody{
		Code:    string(code),
		Message: message,
	}}, correlationID)
}
