package service

import (
	"context"
	"fmt"
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/repository"
	"go.uber.org/zap"
)

const (
	retentionPeriod = 30 * 24 * time.Hour

	// fanOutChunkSize and fanOutChunkDelay pace large enqueue fan-outs.
	fanOutChunkSize  = 100
	fanOutChunkDelay = 3 * time.Second

	dailyReminderTitle   = "🗳️ Time to vote!"
	dailyReminderBody    = "Pick today's favorite before the day ends."
	eveningReminderTitle = "⏰ Last call to vote!"
	eveningReminderBody  = "Still time to cast today's vote before midnight."
	monthlyWinnerTitle   = "🏆 We have a winner!"
)

// ActivityChecker reports whether a recipient already completed today's
// qualifying event. Owned by the voting domain, injected here.
type ActivityChecker interface {
	HasVotedToday(ctx context.Context, fid uint64, day time.Time) (bool, error)
}

// Scheduler holds the time-driven passes. Every entry point is a plain
// callable with no embedded timing; the hosting process owns the wall clock.
type Scheduler struct {
	recipients    repository.RecipientRepository
	notifications repository.NotificationRepository
	enqueuer      EnqueueAPI
	activity      ActivityChecker
	logger        *zap.Logger
	appBaseURL    string
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration)
}

func NewScheduler(
	recipients repository.RecipientRepository,
	notifications repository.NotificationRepository,
	enqueuer EnqueueAPI,
	activity ActivityChecker,
	appBaseURL string,
	logger *zap.Logger,
) (*Scheduler, error) {
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer is required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity checker is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		recipients:    recipients,
		notifications: notifications,
		enqueuer:      enqueuer,
		activity:      activity,
		logger:        logger,
		appBaseURL:    appBaseURL,
		now:           time.Now,
		sleep:         sleepWithContext,
	}, nil
}

// RunDailyPass enqueues one DAILY_REMINDER for every enabled recipient who
// has not voted today and has not been reminded today.
func (s *Scheduler) RunDailyPass(ctx context.Context) error {
	now := s.now().UTC()
	date := now.Format("2006-01-02")

	recipients, err := s.recipients.ListEnabledWithToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	enqueued := 0
	for i := range recipients {
		recipient := recipients[i]

		voted, err := s.activity.HasVotedToday(ctx, recipient.FID, now)
		if err != nil {
			s.logger.Error("failed to check vote activity", zap.Uint64("fid", recipient.FID), zap.Error(err))
			continue
		}
		if voted {
			continue
		}
		if recipient.LastReminderSentAt != nil && sameDay(*recipient.LastReminderSentAt, now) {
			continue
		}

		created := s.enqueuer.Enqueue(ctx, EnqueueParams{
			RecipientFID:   recipient.FID,
			Category:       domain.CategoryDailyReminder,
			Title:          dailyReminderTitle,
			Body:           dailyReminderBody,
			TargetURL:      s.appBaseURL,
			ScheduledFor:   now,
			IdempotencyKey: fmt.Sprintf("daily_reminder_%d_%s", recipient.FID, date),
		})
		if created {
			enqueued++
		}

		if err := s.recipients.SetLastReminderSentAt(ctx, recipient.FID, now); err != nil {
			s.logger.Error("failed to update reminder timestamp", zap.Uint64("fid", recipient.FID), zap.Error(err))
		}
	}

	s.logger.Info("daily reminder pass finished",
		zap.Int("candidates", len(recipients)),
		zap.Int("enqueued", enqueued),
	)
	return nil
}

// RunEveningPass enqueues one EVENING_REMINDER for recipients who got today's
// daily reminder and still have not voted. Its key is distinct from the
// morning key so both coexist.
func (s *Scheduler) RunEveningPass(ctx context.Context) error {
	now := s.now().UTC()
	date := now.Format("2006-01-02")

	recipients, err := s.recipients.ListEnabledWithToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	enqueued := 0
	for i := range recipients {
		recipient := recipients[i]

		if recipient.LastReminderSentAt == nil || !sameDay(*recipient.LastReminderSentAt, now) {
			continue
		}

		voted, err := s.activity.HasVotedToday(ctx, recipient.FID, now)
		if err != nil {
			s.logger.Error("failed to check vote activity", zap.Uint64("fid", recipient.FID), zap.Error(err))
			continue
		}
		if voted {
			continue
		}

		created := s.enqueuer.Enqueue(ctx, EnqueueParams{
			RecipientFID:   recipient.FID,
			Category:       domain.CategoryEveningReminder,
			Title:          eveningReminderTitle,
			Body:           eveningReminderBody,
			TargetURL:      s.appBaseURL,
			ScheduledFor:   now,
			IdempotencyKey: fmt.Sprintf("evening_reminder_%d_%s", recipient.FID, date),
		})
		if created {
			enqueued++
		}
	}

	s.logger.Info("evening reminder pass finished",
		zap.Int("candidates", len(recipients)),
		zap.Int("enqueued", enqueued),
	)
	return nil
}

// RunMonthlyWinnerPass fans out one MONTHLY_WINNER announcement per enabled
// recipient. The winner is computed externally. Each enqueue is independent:
// a failure for one recipient never blocks the rest.
func (s *Scheduler) RunMonthlyWinnerPass(ctx context.Context, winnerName string) error {
	if winnerName == "" {
		return fmt.Errorf("%w: winner name is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	month := now.Format("200601")

	recipients, err := s.recipients.ListEnabledWithToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to list announcement recipients: %w", err)
	}

	enqueued := 0
	for i := range recipients {
		if i > 0 && i%fanOutChunkSize == 0 {
			s.sleep(ctx, fanOutChunkDelay)
		}

		recipient := recipients[i]
		created := s.enqueuer.Enqueue(ctx, EnqueueParams{
			RecipientFID:   recipient.FID,
			Category:       domain.CategoryMonthlyWinner,
			Title:          monthlyWinnerTitle,
			Body:           fmt.Sprintf("%s took this month's crown. See the final standings!", winnerName),
			TargetURL:      s.appBaseURL,
			ScheduledFor:   now,
			IdempotencyKey: fmt.Sprintf("monthly_winner_%d_%s", recipient.FID, month),
		})
		if created {
			enqueued++
		}
	}

	s.logger.Info("monthly winner pass finished",
		zap.String("winner", winnerName),
		zap.Int("recipients", len(recipients)),
		zap.Int("enqueued", enqueued),
	)
	return nil
}

// RunRetentionCleanup deletes terminal records older than the retention
// period. PENDING records are never deleted regardless of age.
func (s *Scheduler) RunRetentionCleanup(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-retentionPeriod)

	deleted, err := s.notifications.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention cleanup failed: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("retention cleanup finished", zap.Int64("deleted", deleted))
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
