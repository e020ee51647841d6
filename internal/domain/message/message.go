// Package message implements direct messages between platform users.
package message

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/domain/validation"
	"github.com/xenking/vendor-request-system/internal/events"
)

// Sentinel errors for messaging.
var (
	ErrNotFound         = errors.New("message not found")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrNotReceiver      = errors.New("only the receiver can mark a message as read")
)

const maxContentLen = 4000

// Participant is the hydrated sender or receiver of a message.
type Participant struct {
	ID    string
	Email string
	Role  user.Role
}

// Message links two users and optionally an order or product.
type Message struct {
	ID               string
	SenderID         string
	ReceiverID       string
	Content          string
	Read             bool
	RelatedOrderID   string
	RelatedProductID string
	CreatedAt        time.Time

	Sender   Participant
	Receiver Participant
}

// Repository persists messages. Reads return hydrated participants.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	// ListForUser returns messages sent or received by userID, newest first.
	ListForUser(ctx context.Context, userID string) ([]Message, error)
	MarkRead(ctx context.Context, id string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// Users looks up message participants.
type Users interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type SendRequest struct {
	ReceiverID       string
	Content          string
	RelatedOrderID   string
	RelatedProductID string
}

type Service struct {
	repo   Repository
	users  Users
	events events.Publisher
}

func NewService(repo Repository, users Users, pub events.Publisher) *Service {
	return &Service{repo: repo, users: users, events: pub}
}

// Send delivers a message from senderID.
func (s *Service) Send(ctx context.Context, senderID string, req SendRequest) (*Message, error) {
	content := strings.TrimSpace(req.Content)
	switch {
	case req.ReceiverID == "":
		return nil, validation.Required("receiverId")
	case content == "":
		return nil, validation.Required("content")
	case len(content) > maxContentLen:
		return nil, validation.New("content", "is too long")
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, errors.Wrap(err, "get sender")
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, errors.Wrap(err, "get receiver")
	}

	m := &Message{
		ID:               uuid.New().String(),
		SenderID:         sender.ID,
		ReceiverID:       receiver.ID,
		Content:          content,
		RelatedOrderID:   req.RelatedOrderID,
		RelatedProductID: req.RelatedProductID,
		Sender:           participant(sender),
		Receiver:         participant(receiver),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, errors.Wrap(err, "create message")
	}

	events.Emit(ctx, s.events, events.Event{
		Type: events.MessageSent,
		Key:  m.ReceiverID,
		Payload: map[string]string{
			"messageId":  m.ID,
			"senderId":   m.SenderID,
			"receiverId": m.ReceiverID,
		},
	})
	return m, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Message, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkRead flags a message as read on behalf of its receiver.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (*Message, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != userID {
		return nil, ErrNotReceiver
	}
	if m.Read {
		return m, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, errors.Wrap(err, "mark read")
	}
	m.Read = true
	return m, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func participant(u *user.User) Participant {
	return Participant{ID: u.ID, Email: u.Email, Role: u.Role}
}
