package notification

import "context"

// Messenger defines the interface for sending push notifications.
// Implemented by the Firebase FCM client in the infrastructure layer.
type Messenger interface {
	SendMulticast(ctx context.Context, msg MulticastMessage) (*Result, error)
}

// ErrorClassifier maps a provider error to a short kind label such as
// "unregistered" or "unavailable". Used for logs and metrics only.
type ErrorClassifier func(err error) string
