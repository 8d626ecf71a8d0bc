package match

import (
	"context"

	"github.com/mcoot/balltoss/internal/model"
)

// Notifier delivers server-initiated messages to a single connection.
// Delivery is fire-and-forget: an unreachable connection drops the message.
type Notifier interface {
	Notify(ctx context.Context, to model.PlayerID, n model.Notification)
}
