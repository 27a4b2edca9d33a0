package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/adapters/persistence/repositories"
	"sacco-hub/internal/core/domain"

	"github.com/google/uuid"
)

const maxMessageLength = 2000

// ChatService stores group chat messages and fans them out to open streams
type ChatService struct {
	messageRepo  repositories.MessageRepository
	memberRepo   repositories.MemberRepository
	membership   *MembershipService
	hub          *EventHub
	historyLimit int
}

// NewChatService creates a new chat service
func NewChatService(
	messageRepo repositories.MessageRepository,
	memberRepo repositories.MemberRepository,
	membership *MembershipService,
	hub *EventHub,
	historyLimit int,
) *ChatService {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &ChatService{
		messageRepo:  messageRepo,
		memberRepo:   memberRepo,
		membership:   membership,
		hub:          hub,
		historyLimit: historyLimit,
	}
}

// SendMessage posts a message to a group the actor belongs to
func (s *ChatService) SendMessage(ctx context.Context, groupID uint, actor domain.Actor, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, domain.Invalid("message must be at most %d characters", maxMessageLength)
	}

	if _, err := s.membership.RequireMember(ctx, groupID, actor.MemberID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		GroupID:  groupID,
		MemberID: actor.MemberID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, domain.Persistence(err)
	}

	if author, err := s.memberRepo.GetByID(ctx, actor.MemberID); err == nil {
		msg.Member = author
	}

	s.hub.BroadcastToGroup(groupID, Event{Name: "message", Data: msg})
	return msg, nil
}

// ListMessages returns the latest messages of a group in chronological order
func (s *ChatService) ListMessages(ctx context.Context, groupID uint, actor domain.Actor) ([]*models.Message, error) {
	if _, err := s.membership.RequireMember(ctx, groupID, actor.MemberID); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListByGroup(ctx, groupID, s.historyLimit)
	if err != nil {
		return nil, domain.Persistence(err)
	}
	return msgs, nil
}

// Subscribe opens a stream of the group's new messages for a roster member.
// The caller must Unsubscribe with the returned subscriber's ID.
func (s *ChatService) Subscribe(ctx context.Context, groupID uint, actor domain.Actor) (*Subscriber, error) {
	if _, err := s.membership.RequireMember(ctx, groupID, actor.MemberID); err != nil {
		return nil, err
	}
	sub := &Subscriber{
		ID:       "chat-" + uuid.NewString(),
		MemberID: actor.MemberID,
		GroupID:  groupID,
		Channel:  make(chan Event, 50),
	}
	s.hub.Register(sub)
	return sub, nil
}

// Unsubscribe closes a stream
func (s *ChatService) Unsubscribe(id string) {
	s.hub.Unregister(id)
}
