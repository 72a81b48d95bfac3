package ports

import (
	"context"
	"errors"

	"github.com/dejobratic/salestax/internal/tax/domain"
)

// NotificationSink alerts operators about failed calculations.
type NotificationSink interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// ErrNotificationFailed is returned when an alert could not be delivered.
var ErrNotificationFailed = errors.New("notification failed")
