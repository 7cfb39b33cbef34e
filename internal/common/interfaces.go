package common

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks gochats/internal/common Notifier

// Notifier hands events to the bus without blocking the caller and never reports failures back.
type Notifier interface {
	Notify(event NotificationEvent)
}

// NopNotifier is used when the bus is disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(NotificationEvent) {}
