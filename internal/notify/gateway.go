// Package notify schedules matching passes per subscriber and dispatches
// candidates through the messaging gateway with an at-most-once guarantee.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jobdigest/jobdigest/internal/domain"
	"github.com/jobdigest/jobdigest/shared/rabbitmq"
)

// ReasonRecipientBlocked marks a permanent send failure caused by the
// recipient refusing further messages; the dispatcher deactivates the
// subscriber when it sees it.
const ReasonRecipientBlocked = "recipient_blocked"

// Gateway delivers one notification payload to a subscriber. Failures follow
// the domain taxonomy: TransientError means the message was not delivered and
// a retry is safe, PermanentError means retrying cannot help (Attempted says
// whether delivery may have happened), AmbiguousError means the outcome is
// unknown.
type Gateway interface {
	Send(ctx context.Context, payload domain.NotificationPayload) error
}

// QueueGateway publishes payloads to the notification exchange with broker
// confirms, translating broker outcomes into the delivery taxonomy.
type QueueGateway struct {
	client *rabbitmq.Client
}

func NewQueueGateway(client *rabbitmq.Client) *QueueGateway {
	return &QueueGateway{client: client}
}

// Send publishes the payload and waits for the broker confirm.
func (g *QueueGateway) Send(ctx context.Context, payload domain.NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.PermanentError{Reason: "encode payload", Attempted: false, Err: err}
	}

	err = g.client.PublishConfirmed(ctx, body, "application/json")
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rabbitmq.ErrUnroutable):
		// The broker acked but no queue took the message; delivery
		// definitively did not happen.
		return &domain.PermanentError{Reason: "unroutable", Attempted: false, Err: err}
	case errors.Is(err, rabbitmq.ErrConfirmTimeout):
		return &domain.AmbiguousError{Err: err}
	case errors.Is(err, rabbitmq.ErrNotConfirmed):
		return domain.NewTransient(err)
	default:
		return domain.NewTransient(fmt.Errorf("publish: %w", err))
	}
}
