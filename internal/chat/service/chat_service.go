package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"gochats/internal/chat/repository"
	"gochats/internal/common"
	"gochats/internal/dbmongo"
)

// mongo's DocumentValidationFailure
const documentValidationFailure = 121

// CreateMessageInput holds the client-settable fields of a message.
type CreateMessageInput struct {
	WriterUserID   string `json:"writerUserId"`
	ReceiverUserID string `json:"receiverUserId"`
	MessageContent string `json:"messageContent"`
}

//go:generate mockgen -destination=mocks/mock_chat_service.go -package=mocks gochats/internal/chat/service ChatService

// ChatService defines the interface exposed to the handler layer
type ChatService interface {
	CreateMessage(ctx context.Context, in CreateMessageInput) (*dbmongo.Message, error)
	GetChat(ctx context.Context, writerUserID, receiverUserID string) ([]*dbmongo.Message, error)
	MarkAsRead(ctx context.Context, id string) (*dbmongo.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

type chatService struct {
	repo        repository.ChatRepository
	notifier    common.Notifier
	serviceName string
	now         func() time.Time
}

func NewChatService(r repository.ChatRepository, n common.Notifier, serviceName string) ChatService {
	if n == nil {
		n = common.NopNotifier{}
	}
	return &chatService{repo: r, notifier: n, serviceName: serviceName, now: time.Now}
}

// CreateMessage stamps the server-owned fields, persists the message and announces it.
func (s *chatService) CreateMessage(ctx context.Context, in CreateMessageInput) (*dbmongo.Message, error) {
	msg := &dbmongo.Message{
		WriterUserID:   in.WriterUserID,
		ReceiverUserID: in.ReceiverUserID,
		MessageContent: in.MessageContent,
		ShippingDate:   s.now().UTC().Truncate(time.Millisecond),
		MessageStatus:  dbmongo.StatusUnread,
	}

	if violations := common.ValidateStruct(msg); len(violations) > 0 {
		return nil, common.ValidationError("Message validation failed", violations...)
	}

	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, mapStoreErr("Failed to create message", err)
	}

	s.notifier.Notify(common.NotificationEvent{
		EventID:       uuid.NewString(),
		Type:          common.MessageCreatedType,
		Service:       s.serviceName,
		UserID:        msg.ReceiverUserID,
		TriggerUserID: msg.WriterUserID,
		Data:          msg,
		Timestamp:     s.now().UTC(),
	})

	return msg, nil
}

// GetChat returns the conversation between the two users in both directions.
func (s *chatService) GetChat(ctx context.Context, writerUserID, receiverUserID string) ([]*dbmongo.Message, error) {
	messages, err := s.repo.FetchChat(ctx, writerUserID, receiverUserID)
	if err != nil {
		return nil, mapStoreErr("Failed to fetch chat", err)
	}
	return messages, nil
}

// MarkAsRead is idempotent; READ is the only target status.
// A message that is already READ is returned as stored, without a write.
func (s *chatService) MarkAsRead(ctx context.Context, id string) (*dbmongo.Message, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr("Failed to update message status", err)
	}
	if current.MessageStatus == dbmongo.StatusRead {
		return current, nil
	}

	msg, err := s.repo.UpdateStatus(ctx, id, dbmongo.StatusRead)
	if err != nil {
		return nil, mapStoreErr("Failed to update message status", err)
	}
	return msg, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreErr("Failed to delete message", err)
	}
	return nil
}

// mapStoreErr keeps taxonomy errors from the repository and hides everything else.
func mapStoreErr(message string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(documentValidationFailure) {
		return common.Wrap(common.CodeValidation, "Message validation failed", err)
	}
	return common.InternalError(message, err)
}
