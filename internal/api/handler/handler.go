package handler

import (
	"context"
	"log/slog"

	"github.com/jobdigest/jobdigest/internal/catalog"
	"github.com/jobdigest/jobdigest/internal/notify"
	"github.com/jobdigest/jobdigest/shared/postgresql"
	"github.com/jobdigest/jobdigest/shared/rabbitmq"
)

// Notifier runs an on-demand notification pass for one subscriber.
type Notifier interface {
	NotifyNow(ctx context.Context, subscriberID string) (notify.DispatchReport, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
	Prefs        *catalog.PreferenceStore
	Ledger       *catalog.NotificationLedger
	Jobs         *catalog.JobStore
	Notifier     Notifier
}
