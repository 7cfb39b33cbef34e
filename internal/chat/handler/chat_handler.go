// Package handler exposes the chat service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"gochats/internal/chat/service"
	"gochats/internal/common"
	"gochats/internal/dbmongo"
)

type payloadKey struct{}

var createMessageSchema = common.NewSchema().
	Field("messageStatus", common.NotExists("messageStatus should not be provided")).
	Field("shippingDate", common.NotExists("shippingDate should not be provided")).
	Field("writerUserId",
		common.Exists("writerUserId is required"),
		common.IsString("writerUserId must be a string"),
	).
	Field("receiverUserId",
		common.Exists("receiverUserId is required"),
		common.IsString("receiverUserId must be a string"),
	).
	Field("messageContent",
		common.Exists("messageContent is required"),
		common.IsString("messageContent must be a string"),
		common.MinLength(1, "messageContent must be at least 1 characters long"),
		common.MaxLength(dbmongo.MaxMessageContent, "messageContent must be at most 500 characters long"),
	)

type ChatHandler struct {
	chatService service.ChatService
	er          *common.ErrorResponder
	logger      *slog.Logger
}

func NewChatHandler(chatService service.ChatService, er *common.ErrorResponder, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, er: er, logger: logger}
}

// DecodeBody parses the JSON object body once and keeps it on the request context.
func (h *ChatHandler) DecodeBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := common.DecodeObject(http.MaxBytesReader(w, r.Body, common.MaxBodyBytes))
		if err != nil {
			h.er.Respond(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), payloadKey{}, payload)))
	})
}

// ValidateCreateMessage reports every schema violation at once.
func (h *ChatHandler) ValidateCreateMessage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		violations := createMessageSchema.Validate(payloadFrom(r))
		if len(violations) > 0 {
			h.er.Respond(w, r, common.ValidationError(
				"Error found in request body when trying to create message", violations...))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func payloadFrom(r *http.Request) map[string]interface{} {
	payload, _ := r.Context().Value(payloadKey{}).(map[string]interface{})
	if payload == nil {
		return map[string]interface{}{}
	}
	return payload
}

func (h *ChatHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	payload := payloadFrom(r)
	str := func(key string) string {
		s, _ := payload[key].(string)
		return s
	}

	msg, err := h.chatService.CreateMessage(r.Context(), service.CreateMessageInput{
		WriterUserID:   str("writerUserId"),
		ReceiverUserID: str("receiverUserId"),
		MessageContent: str("messageContent"),
	})
	if err != nil {
		h.er.Respond(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message created", "message_id", msg.ID.Hex())
	common.SendSuccess(w, msg, "Message created successfully", http.StatusCreated)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	writer, receiver := vars["writerUserId"], vars["receiverUserId"]

	messages, err := h.chatService.GetChat(r.Context(), writer, receiver)
	if err != nil {
		h.er.Respond(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "chat fetched", "writer_user_id", writer, "receiver_user_id", receiver, "count", len(messages))
	common.SendSuccess(w, messages, "", http.StatusOK)
}

func (h *ChatHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	msg, err := h.chatService.MarkAsRead(r.Context(), id)
	if err != nil {
		h.er.Respond(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message status updated", "message_id", id, "status", msg.MessageStatus)
	common.SendSuccess(w, msg, "MessageStatus updated successfully", http.StatusOK)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.chatService.DeleteMessage(r.Context(), id); err != nil {
		h.er.Respond(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message deleted", "message_id", id)
	common.SendSuccess(w, nil, "", http.StatusNoContent)
}

func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.SendSuccess(w, map[string]string{"status": "healthy", "service": "chats-service"}, "", http.StatusOK)
}
