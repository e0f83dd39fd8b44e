package ports

import "context"

// NotificationKind names a templated message.
type NotificationKind string

const NotificationWelcome NotificationKind = "welcome"

// Notification is one message addressed to a user.
type Notification struct {
	Kind     NotificationKind
	Username string
	Email    string
}

// Notifier delivers a notification.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationQueue accepts notifications for asynchronous delivery.
type NotificationQueue interface {
	Enqueue(n Notification)
}
