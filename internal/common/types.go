package common

import (
	"time"
)

type NotificationType string

const MessageCreatedType NotificationType = "MESSAGE_CREATED"

// NotificationEvent is what gets published to the bus.
type NotificationEvent struct {
	EventID       string           `json:"eventId"`
	Type          NotificationType `json:"type"`
	Service       string           `json:"service"`
	UserID        string           `json:"userId"`
	TriggerUserID string           `json:"triggerUserId,omitempty"`
	Data          interface{}      `json:"data,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}
