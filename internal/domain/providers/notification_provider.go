package providers

import (
	"context"

	"github.com/rxgrid/pharmacy-discovery/internal/domain/entities"
)

// NotificationDispatcher accepts notification intents for delivery. Channel
// fan-out (push/email/SMS) is the dispatcher's concern, not the engine's.
type NotificationDispatcher interface {
	// Dispatch hands one intent to the delivery side. A nil error means the
	// intent was accepted, not that it reached the recipient.
	Dispatch(ctx context.Context, intent entities.NotificationIntent) error
}
