package dbmongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStatus string

const (
	StatusUnread MessageStatus = "UNREAD"
	StatusRead   MessageStatus = "READ"
)

const MaxMessageContent = 500

// Message is a chat message between two users. ShippingDate and MessageStatus are server-owned.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WriterUserID   string             `bson:"writerUserId" json:"writerUserId" validate:"required"`
	ReceiverUserID string             `bson:"receiverUserId" json:"receiverUserId" validate:"required"`
	MessageContent string             `bson:"messageContent" json:"messageContent" validate:"required,min=1,max=500"`
	ShippingDate   time.Time          `bson:"shippingDate" json:"shippingDate" validate:"required"`
	MessageStatus  MessageStatus      `bson:"messageStatus" json:"messageStatus" validate:"required,oneof=READ UNREAD"`
}
