package ports

import (
	"context"

	"transfer-manager-api/internal/domain/download"
)

// WebhookSender performs one HTTP delivery attempt. Retry counting
// belongs to the outbox dispatcher, not the sender.
type WebhookSender interface {
	Send(ctx context.Context, fact download.WebhookFact) error
}
