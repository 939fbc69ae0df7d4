package service

import (
	"context"
	"fmt"
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/observability"
	"github.com/selimacar/frame-notifier/internal/repository"
	"go.uber.org/zap"
)

const (
	welcomeTitle = "🎉 Welcome aboard!"
	welcomeBody  = "You're all set. We'll nudge you when it's time to vote."

	skipReasonOptedOut = "recipient opted out"
)

// Lifecycle applies webhook lifecycle events to recipient state.
type Lifecycle struct {
	recipients    repository.RecipientRepository
	notifications repository.NotificationRepository
	enqueuer      EnqueueAPI
	logger        *zap.Logger
	metrics       *observability.Metrics
	appBaseURL    string
	now           func() time.Time
}

func NewLifecycle(
	recipients repository.RecipientRepository,
	notifications repository.NotificationRepository,
	enqueuer EnqueueAPI,
	appBaseURL string,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Lifecycle, error) {
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Lifecycle{
		recipients:    recipients,
		notifications: notifications,
		enqueuer:      enqueuer,
		logger:        logger,
		metrics:       metrics,
		appBaseURL:    appBaseURL,
		now:           time.Now,
	}, nil
}

// HandleEvent routes a verified lifecycle event. Unknown event types are
// rejected with ErrValidation so the transport can answer 400.
func (l *Lifecycle) HandleEvent(ctx context.Context, event domain.LifecycleEvent) error {
	if err := event.Validate(); err != nil {
		l.metrics.IncLifecycleEvent(string(event.Type), "rejected")
		return err
	}

	var err error
	switch event.Type {
	case domain.EventFrameAdded:
		err = l.handleFrameAdded(ctx, event)
	case domain.EventNotificationsEnabled:
		err = l.enable(ctx, event.FID, event.NotificationDetails)
	case domain.EventFrameRemoved, domain.EventNotificationsDisabled:
		err = l.disable(ctx, event.FID)
	default:
		l.metrics.IncLifecycleEvent(string(event.Type), "rejected")
		return fmt.Errorf("%w: unsupported event type %q", domain.ErrValidation, event.Type)
	}

	if err != nil {
		l.metrics.IncLifecycleEvent(string(event.Type), "error")
		return err
	}

	l.metrics.IncLifecycleEvent(string(event.Type), "applied")
	return nil
}

func (l *Lifecycle) handleFrameAdded(ctx context.Context, event domain.LifecycleEvent) error {
	// frame_added may arrive without notification details when the client
	// added the frame but kept notifications off. Record the recipient
	// either way so later enablement has a row to update.
	if event.NotificationDetails == nil {
		recipient := &domain.Recipient{FID: event.FID, NotificationsEnabled: false}
		if err := l.recipients.Upsert(ctx, recipient); err != nil {
			return fmt.Errorf("failed to register recipient %d: %w", event.FID, err)
		}
		l.logger.Info("frame added without notification details", zap.Uint64("fid", event.FID))
		return nil
	}

	if err := l.enable(ctx, event.FID, event.NotificationDetails); err != nil {
		return err
	}

	l.enqueuer.Enqueue(ctx, EnqueueParams{
		RecipientFID: event.FID,
		Category:     domain.CategoryWelcome,
		Title:        welcomeTitle,
		Body:         welcomeBody,
		TargetURL:    l.appBaseURL,
		ScheduledFor: l.now().UTC(),
	})
	return nil
}

func (l *Lifecycle) enable(ctx context.Context, fid uint64, details *domain.NotificationDetails) error {
	if details == nil {
		return fmt.Errorf("%w: notification details are required to enable delivery", domain.ErrValidation)
	}

	if err := l.recipients.EnableNotifications(ctx, fid, details.Token, details.URL); err != nil {
		return fmt.Errorf("failed to enable notifications for %d: %w", fid, err)
	}

	l.logger.Info("notifications enabled", zap.Uint64("fid", fid))
	return nil
}

func (l *Lifecycle) disable(ctx context.Context, fid uint64) error {
	if err := l.recipients.DisableNotifications(ctx, fid); err != nil {
		return fmt.Errorf("failed to disable notifications for %d: %w", fid, err)
	}

	skipped, err := l.notifications.SkipPendingForRecipient(ctx, fid, skipReasonOptedOut)
	if err != nil {
		return fmt.Errorf("failed to cancel pending notifications for %d: %w", fid, err)
	}
	for i := int64(0); i < skipped; i++ {
		l.metrics.IncSkipped(skipReasonOptedOut)
	}

	l.logger.Info("notifications disabled",
		zap.Uint64("fid", fid),
		zap.Int64("pending_skipped", skipped),
	)
	return nil
}
