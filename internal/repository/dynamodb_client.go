package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"help-assistant/internal/domain"
)

const (
	pkPrefixSession = "SESSION#"
	pkPrefixUser    = "USER#"
	skPrefixMsg     = "MSG#"
	skMeta          = "META#"
	skProfile       = "PROFILE#"
	ttlDuration     = 90 * 24 * time.Hour // 90-day retention
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repository: not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store defines the persistence operations consumed by the chat pipeline.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	GetProfile(ctx context.Context, userID string) (domain.CallerProfile, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg domain.Message) error
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
	ListPublishedArticles(ctx context.Context) ([]domain.KnowledgeArticle, error)
}

// Client wraps the DynamoDB tables backing chat state and the knowledge base.
type Client struct {
	api            dynamodbAPI
	stateTable     string
	knowledgeTable string
}

// New creates a new repository Client.
func New(api dynamodbAPI, stateTable, knowledgeTable string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(stateTable) == "" {
		return nil, errors.New("repository: state table name must not be empty")
	}
	if strings.TrimSpace(knowledgeTable) == "" {
		return nil, errors.New("repository: knowledge table name must not be empty")
	}
	return &Client{api: api, stateTable: stateTable, knowledgeTable: knowledgeTable}, nil
}

func sessionPK(sessionID string) string {
	return pkPrefixSession + sessionID
}

func userPK(userID string) string {
	return pkPrefixUser + userID
}

// msgSK orders messages chronologically within a session; the id suffix
// disambiguates writes that land on the same nanosecond.
func msgSK(ts time.Time, messageID string) string {
	suffix := messageID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return skPrefixMsg + ts.UTC().Format(time.RFC3339Nano) + "#" + suffix
}

func ttlValue(now time.Time) int64 {
	return now.Add(ttlDuration).Unix()
}

// GetSession loads a session record, or ErrNotFound.
func (c *Client) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.stateTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: GetSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Session{}, ErrNotFound
	}
	return itemToSession(out.Item)
}

// GetProfile loads the caller's profile record, or ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, userID string) (domain.CallerProfile, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.stateTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
	})
	if err != nil {
		return domain.CallerProfile{}, fmt.Errorf("repository: GetProfile get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.CallerProfile{}, ErrNotFound
	}

	profile := domain.DefaultProfile()
	if v, err := strAttr(out.Item, "role"); err == nil && v != "" {
		profile.Role = v
	}
	if v, err := strAttr(out.Item, "fullName"); err == nil && v != "" {
		profile.Name = v
	}
	if v, err := strAttr(out.Item, "membershipTier"); err == nil && v != "" {
		profile.Tier = v
	}
	return profile, nil
}

// GetHistory returns the last limit messages for a session in chronological
// order. The query reads newest-first so LIMIT favors the most recent
// context, then reverses before returning to prompt assembly.
func (c *Client) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.stateTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	msgs := make([]domain.Message, 0, len(out.Items))
	for _, item := range out.Items {
		msg, err := itemToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		msgs = append(msgs, msg)
	}
	// Reverse to chronological order before returning to prompt assembly.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AppendMessage persists a new message record. Messages are append-only;
// the conditional put refuses to overwrite an existing entry.
func (c *Client) AppendMessage(ctx context.Context, msg domain.Message) error {
	if msg.PK == "" || msg.SK == "" {
		return errors.New("repository: AppendMessage: PK and SK are required")
	}

	item, err := messageItem(msg)
	if err != nil {
		return fmt.Errorf("repository: AppendMessage: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.stateTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendMessage: %w", err)
	}
	return nil
}

// TouchSession bumps the session's last-activity timestamp.
func (c *Client) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.stateTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression: aws.String("SET lastMessageAt = :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: TouchSession: %w", err)
	}
	return nil
}

// ListPublishedArticles scans the knowledge table for published articles.
// Keyword and access-level filtering happen in the usecase layer.
func (c *Client) ListPublishedArticles(ctx context.Context) ([]domain.KnowledgeArticle, error) {
	out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(c.knowledgeTable),
		FilterExpression: aws.String("isPublished = :true"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListPublishedArticles scan: %w", err)
	}

	articles := make([]domain.KnowledgeArticle, 0, len(out.Items))
	for _, item := range out.Items {
		articles = append(articles, itemToArticle(item))
	}
	return articles, nil
}

// NewMessage constructs a Message with keys and TTL derived from the
// session, sender, and creation time.
func NewMessage(sessionID, messageID, sender, content string, createdAt time.Time) domain.Message {
	return domain.Message{
		PK:        sessionPK(sessionID),
		SK:        msgSK(createdAt, messageID),
		MessageID: messageID,
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: createdAt.UTC(),
		TTL:       ttlValue(createdAt),
	}
}

func itemToSession(item map[string]types.AttributeValue) (domain.Session, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: session item: %w", err)
	}
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: session item: %w", err)
	}
	lastMessageAt, _ := strAttr(item, "lastMessageAt") // allow empty

	s := domain.Session{
		PK:            pk,
		SK:            skMeta,
		SessionID:     strings.TrimPrefix(pk, pkPrefixSession),
		UserID:        userID,
		LastMessageAt: lastMessageAt,
	}
	if v, ok := item["contextData"]; ok {
		if m, ok := v.(*types.AttributeValueMemberM); ok {
			s.ContextData = make(map[string]string, len(m.Value))
			for k, av := range m.Value {
				if sv, ok := av.(*types.AttributeValueMemberS); ok {
					s.ContextData[k] = sv.Value
				}
			}
		}
	}
	return s, nil
}

func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Message{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Message{}, err
	}
	sender, err := strAttr(item, "sender")
	if err != nil {
		return domain.Message{}, err
	}
	body, err := strAttr(item, "content")
	if err != nil {
		return domain.Message{}, err
	}
	messageID, _ := strAttr(item, "messageId") // allow empty on legacy rows
	sessionID, _ := strAttr(item, "sessionId")

	msg := domain.Message{
		PK:        pk,
		SK:        sk,
		MessageID: messageID,
		SessionID: sessionID,
		Sender:    sender,
		Content:   body,
	}
	if raw, err := strAttr(item, "createdAt"); err == nil && raw != "" {
		if ts, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			msg.CreatedAt = ts
		}
	}
	if raw, err := strAttr(item, "metadata"); err == nil && raw != "" {
		var md domain.MessageMetadata
		if jsonErr := json.Unmarshal([]byte(raw), &md); jsonErr == nil {
			msg.Metadata = &md
		}
	}
	return msg, nil
}

func itemToArticle(item map[string]types.AttributeValue) domain.KnowledgeArticle {
	a := domain.KnowledgeArticle{AccessLevel: "all"}
	if v, err := strAttr(item, "id"); err == nil {
		a.ID = v
	}
	if v, err := strAttr(item, "title"); err == nil {
		a.Title = v
	}
	if v, err := strAttr(item, "content"); err == nil {
		a.Content = v
	}
	if v, err := strAttr(item, "category"); err == nil {
		a.Category = v
	}
	if v, err := strAttr(item, "accessLevel"); err == nil && v != "" {
		a.AccessLevel = v
	}
	if v, ok := item["isPublished"]; ok {
		if b, ok := v.(*types.AttributeValueMemberBOOL); ok {
			a.Published = b.Value
		}
	}
	return a
}

func messageItem(msg domain.Message) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: msg.PK},
		"SK":        &types.AttributeValueMemberS{Value: msg.SK},
		"messageId": &types.AttributeValueMemberS{Value: msg.MessageID},
		"sessionId": &types.AttributeValueMemberS{Value: msg.SessionID},
		"sender":    &types.AttributeValueMemberS{Value: msg.Sender},
		"content":   &types.AttributeValueMemberS{Value: msg.Content},
		"createdAt": &types.AttributeValueMemberS{Value: msg.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", msg.TTL)},
	}
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		item["metadata"] = &types.AttributeValueMemberS{Value: string(raw)}
	}
	return item, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
