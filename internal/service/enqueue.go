package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/observability"
	"github.com/selimacar/frame-notifier/internal/repository"
	"go.uber.org/zap"
)

// dedupWindow is the rolling window inside which two enqueues with the same
// idempotency key collapse into one record.
const dedupWindow = 24 * time.Hour

type EnqueueParams struct {
	RecipientFID   uint64
	Category       domain.Category
	Title          string
	Body           string
	TargetURL      string
	ScheduledFor   time.Time
	IdempotencyKey string
}

// EnqueueAPI is the port the scheduler and lifecycle handler push through.
type EnqueueAPI interface {
	Enqueue(ctx context.Context, params EnqueueParams) bool
}

// Enqueuer builds notification records with computed idempotency keys and
// persists them unless a duplicate already exists. Delivery is best-effort:
// storage failures are logged and swallowed, never surfaced to the caller.
type Enqueuer struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
	enabled       bool
	now           func() time.Time
	newID         func() string
}

var _ EnqueueAPI = (*Enqueuer)(nil)

func NewEnqueuer(
	notifications repository.NotificationRepository,
	enabled bool,
	logger *zap.Logger,
) (*Enqueuer, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Enqueuer{
		notifications: notifications,
		logger:        logger,
		enabled:       enabled,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

func (s *Enqueuer) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Enqueue persists at most one PENDING record and reports whether a new
// record was created. Duplicates and storage failures both return false.
func (s *Enqueuer) Enqueue(ctx context.Context, params EnqueueParams) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if !s.enabled {
		s.logger.Debug("enqueue skipped, notifications globally disabled",
			zap.Uint64("fid", params.RecipientFID),
			zap.String("category", params.Category.String()),
		)
		return false
	}

	now := s.now().UTC()
	scheduledFor := params.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}

	key := strings.TrimSpace(params.IdempotencyKey)
	if key == "" {
		key = computeIdempotencyKey(params.Category, params.RecipientFID, scheduledFor, params.Title, params.Body)
	}

	existing, err := s.notifications.FindRecentByIdempotencyKey(ctx, params.RecipientFID, key, now.Add(-dedupWindow))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("failed to check for duplicate notification",
			zap.Uint64("fid", params.RecipientFID),
			zap.String("idempotencyKey", key),
			zap.Error(err),
		)
		return false
	}
	if existing != nil {
		s.logger.Debug("duplicate notification suppressed",
			zap.Uint64("fid", params.RecipientFID),
			zap.String("idempotencyKey", key),
			zap.String("existingId", existing.ID),
		)
		s.metrics.IncDuplicateSuppressed(params.Category.String())
		return false
	}

	notification := &domain.Notification{
		ID:             s.newID(),
		RecipientFID:   params.RecipientFID,
		Category:       params.Category,
		IdempotencyKey: key,
		Title:          domain.TruncateRunes(strings.TrimSpace(params.Title), domain.MaxTitleLength),
		Body:           domain.TruncateRunes(strings.TrimSpace(params.Body), domain.MaxBodyLength),
		TargetURL:      domain.TruncateRunes(strings.TrimSpace(params.TargetURL), domain.MaxTargetURLLength),
		Status:         domain.StatusPending,
		ScheduledFor:   scheduledFor,
	}

	if err := notification.Validate(); err != nil {
		s.logger.Error("refusing to enqueue invalid notification",
			zap.Uint64("fid", params.RecipientFID),
			zap.String("category", params.Category.String()),
			zap.Error(err),
		)
		return false
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("failed to persist notification",
			zap.Uint64("fid", params.RecipientFID),
			zap.String("idempotencyKey", key),
			zap.Error(err),
		)
		return false
	}

	s.metrics.IncEnqueued(params.Category.String())
	return true
}

// computeIdempotencyKey is the fallback for callers that did not supply an
// explicit key: same category, recipient, day, and content dedupe together.
func computeIdempotencyKey(category domain.Category, fid uint64, scheduledFor time.Time, title, body string) string {
	return fmt.Sprintf("%s|%d|%s|%s",
		strings.ToLower(category.String()),
		fid,
		scheduledFor.UTC().Format("2006-01-02"),
		shortHash(title+body),
	)
}

func shortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
