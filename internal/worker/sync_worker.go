package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/events"
	"github.com/beanbrew/queueboard/internal/service"
)

// SyncEngine is the lifecycle surface of the order poller.
type SyncEngine interface {
	Start(ctx context.Context, interval time.Duration) error
	Restart(ctx context.Context, interval time.Duration) error
	Stop()
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartSyncWorker ties the poller to the session: it runs while a session
// exists and stops when the session ends. A new login restarts the poller so
// nothing fetched under the previous credential is applied. If authenticated
// is true the poller is started right away for a restored session. The
// returned func detaches the worker and stops the poller.
func StartSyncWorker(ctx context.Context, dispatcher events.Dispatcher, engine SyncEngine, interval time.Duration, authenticated bool, logger *zap.Logger) (stop func()) {
	if engine == nil {
		return func() {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sync-worker")

	report := func(err error) {
		if err != nil && !errors.Is(err, service.ErrSyncRunning) {
			logger.Error("start order sync failed", zap.Error(err))
		}
	}

	var unsubscribe []func()
	if dispatcher != nil {
		unsubscribe = append(unsubscribe,
			dispatcher.Subscribe(events.EventSessionStarted, func(_ context.Context, ev events.Event) error {
				if payload, ok := ev.Payload.(events.SessionPayload); ok {
					logger.Debug("session started; restarting order sync", zap.String("username", payload.Username))
				}
				report(engine.Restart(ctx, interval))
				return nil
			}),
			dispatcher.Subscribe(events.EventSessionEnded, func(context.Context, events.Event) error {
				engine.Stop()
				return nil
			}),
		)
	}

	if authenticated {
		report(engine.Start(ctx, interval))
	}

	return func() {
		for _, u := range unsubscribe {
			u()
		}
		engine.Stop()
	}
}
