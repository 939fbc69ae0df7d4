package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/observability"
	"github.com/selimacar/frame-notifier/internal/provider"
	"github.com/selimacar/frame-notifier/internal/ratelimit"
	"github.com/selimacar/frame-notifier/internal/repository"
	"go.uber.org/zap"
)

const (
	// deliveryBatchSize bounds one pass to keep pass duration predictable.
	deliveryBatchSize = 50
	// minPassInterval guards against closely-spaced triggers double-sending.
	minPassInterval = 30 * time.Second
	// interGroupDelay is courtesy pacing between endpoint groups.
	interGroupDelay = 100 * time.Millisecond

	throttleDelay   = time.Minute
	unknownDelay    = 2 * time.Minute
	dailyCapDelay   = time.Hour
	defaultMaxRetry = 3

	skipReasonNoEndpoint    = "no endpoint"
	skipReasonNoValidTokens = "no valid tokens"
	skipReasonDisabled      = "recipient disabled notifications"
	skipReasonInvalidToken  = "invalid token"
)

// retryBackoff is indexed by retryCount-1 after the increment; further
// attempts clamp to the last entry.
var retryBackoff = []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute}

// TokenCapGuard enforces the push provider's per-token daily budget. A nil
// guard disables the check.
type TokenCapGuard interface {
	TryReserve(ctx context.Context, token string) (bool, error)
}

// DeliveryProcessor runs the delivery loop: it selects due PENDING records,
// groups them by destination endpoint, consults the rate limiter, sends one
// batched request per endpoint, and applies the per-token outcome to each
// record. At most one pass runs per process at a time.
type DeliveryProcessor struct {
	notifications repository.NotificationRepository
	recipients    repository.RecipientRepository
	provider      provider.Provider
	limiter       ratelimit.RateLimiter
	tokenCap      TokenCapGuard
	logger        *zap.Logger
	metrics       *observability.Metrics

	maxRetries int
	enabled    bool
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration)

	mu          sync.Mutex
	running     bool
	lastStarted time.Time
}

func NewDeliveryProcessor(
	notifications repository.NotificationRepository,
	recipients repository.RecipientRepository,
	deliveryProvider provider.Provider,
	limiter ratelimit.RateLimiter,
	tokenCap TokenCapGuard,
	maxRetries int,
	enabled bool,
	logger *zap.Logger,
) (*DeliveryProcessor, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if deliveryProvider == nil {
		return nil, fmt.Errorf("delivery provider is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetry
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryProcessor{
		notifications: notifications,
		recipients:    recipients,
		provider:      deliveryProvider,
		limiter:       limiter,
		tokenCap:      tokenCap,
		logger:        logger,
		maxRetries:    maxRetries,
		enabled:       enabled,
		now:           time.Now,
		sleep:         sleepWithContext,
	}, nil
}

func (p *DeliveryProcessor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// RunPass executes one delivery pass. Overlapping or closely-spaced
// invocations return immediately without touching any record.
func (p *DeliveryProcessor) RunPass(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !p.enabled {
		p.logger.Debug("delivery pass skipped, notifications globally disabled")
		return nil
	}

	if !p.tryBeginPass() {
		p.logger.Debug("delivery pass skipped, previous pass still running or too recent")
		return nil
	}
	defer p.endPass()

	start := p.now()
	p.metrics.SetDeliveryInflight(true)
	defer func() {
		p.metrics.SetDeliveryInflight(false)
		p.metrics.ObserveDeliveryPassDuration(p.now().Sub(start))
	}()

	due, err := p.notifications.GetDeliverable(ctx, start, p.maxRetries, deliveryBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch deliverable notifications: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	groups := p.groupByEndpoint(ctx, due)

	for i, group := range groups {
		p.processGroup(ctx, group)
		if i < len(groups)-1 {
			p.sleep(ctx, interGroupDelay)
		}
	}

	return nil
}

type endpointGroup struct {
	endpoint string
	records  []deliveryRecord
}

type deliveryRecord struct {
	notification domain.Notification
	recipient    *domain.Recipient
}

// groupByEndpoint joins each record with its recipient and buckets records by
// delivery endpoint, preserving scheduled order. Records without a usable
// endpoint are skipped here.
func (p *DeliveryProcessor) groupByEndpoint(ctx context.Context, due []domain.Notification) []endpointGroup {
	recipientCache := make(map[uint64]*domain.Recipient, len(due))
	groupIndex := make(map[string]int)
	groups := make([]endpointGroup, 0)

	for i := range due {
		n := due[i]

		recipient, ok := recipientCache[n.RecipientFID]
		if !ok {
			var err error
			recipient, err = p.recipients.GetByFID(ctx, n.RecipientFID)
			if err != nil {
				recipient = nil
			}
			recipientCache[n.RecipientFID] = recipient
		}

		if recipient == nil || recipient.DeliveryEndpoint == nil || *recipient.DeliveryEndpoint == "" {
			p.skip(ctx, n, skipReasonNoEndpoint)
			continue
		}
		if !recipient.NotificationsEnabled {
			p.skip(ctx, n, skipReasonDisabled)
			continue
		}

		endpoint := *recipient.DeliveryEndpoint
		idx, ok := groupIndex[endpoint]
		if !ok {
			idx = len(groups)
			groupIndex[endpoint] = idx
			groups = append(groups, endpointGroup{endpoint: endpoint})
		}
		groups[idx].records = append(groups[idx].records, deliveryRecord{notification: n, recipient: recipient})
	}

	return groups
}

func (p *DeliveryProcessor) processGroup(ctx context.Context, group endpointGroup) {
	if !p.limiter.TryReserve(group.endpoint, len(group.records)) {
		p.logger.Info("endpoint rate limited, rescheduling group",
			zap.String("endpoint", group.endpoint),
			zap.Int("records", len(group.records)),
		)
		for _, record := range group.records {
			p.rescheduleThrottled(ctx, record.notification, throttleDelay, "rate_limited_local")
		}
		return
	}

	// Collect one token per record, deduplicated, dropping recipients whose
	// token has exhausted its daily budget.
	tokenRecords := make(map[string][]deliveryRecord)
	capped := make(map[string]bool)
	tokens := make([]string, 0, len(group.records))
	for _, record := range group.records {
		token := record.recipient.DeliveryToken
		if token == nil || *token == "" {
			p.skip(ctx, record.notification, skipReasonNoValidTokens)
			continue
		}

		if _, seen := tokenRecords[*token]; !seen && !capped[*token] {
			if !p.reserveDailyBudget(ctx, *token) {
				capped[*token] = true
			} else {
				tokens = append(tokens, *token)
			}
		}
		if capped[*token] {
			p.rescheduleThrottled(ctx, record.notification, dailyCapDelay, "daily_cap")
			continue
		}
		tokenRecords[*token] = append(tokenRecords[*token], record)
	}

	if len(tokens) == 0 {
		return
	}

	// Same-endpoint records in one pass originate from the same scheduled
	// category run, so the first record's content stands in for the batch.
	lead := group.records[0].notification
	req := provider.BatchRequest{
		NotificationID: lead.ID,
		Title:          lead.Title,
		Body:           lead.Body,
		TargetURL:      lead.TargetURL,
		Tokens:         tokens,
	}

	result, err := p.provider.SendBatch(ctx, group.endpoint, req)
	if err != nil {
		p.logger.Warn("batch delivery failed",
			zap.String("endpoint", group.endpoint),
			zap.Int("tokens", len(tokens)),
			zap.Error(err),
		)
		for _, token := range tokens {
			for _, record := range tokenRecords[token] {
				p.retryOrFail(ctx, record.notification, err.Error(), backoffDelay(record.notification.RetryCount+1))
			}
		}
		return
	}

	for _, token := range tokens {
		status := result.StatusOf(token)
		for _, record := range tokenRecords[token] {
			p.applyTokenStatus(ctx, record, token, status)
		}
	}
}

func (p *DeliveryProcessor) applyTokenStatus(ctx context.Context, record deliveryRecord, token string, status provider.TokenStatus) {
	n := record.notification

	switch status {
	case provider.TokenDelivered:
		if err := p.notifications.MarkSent(ctx, n.ID, p.now().UTC()); err != nil {
			p.logger.Error("failed to mark notification sent", zap.String("id", n.ID), zap.Error(err))
			return
		}
		p.metrics.IncSent(n.Category.String())

	case provider.TokenInvalid:
		// An invalid token is a permanent signal: stop pushing to this
		// recipient until a lifecycle event hands over a fresh token.
		p.skip(ctx, n, skipReasonInvalidToken)
		if err := p.recipients.DisableNotifications(ctx, n.RecipientFID); err != nil {
			p.logger.Error("failed to disable recipient after invalid token",
				zap.Uint64("fid", n.RecipientFID),
				zap.Error(err),
			)
		}

	case provider.TokenRateLimited:
		p.rescheduleThrottled(ctx, n, throttleDelay, "rate_limited_provider")

	default:
		p.retryOrFail(ctx, n, fmt.Sprintf("token %s missing from endpoint response", token), unknownDelay)
	}
}

// retryOrFail routes a record through the backoff policy. A record failing
// with its retry budget already spent goes FAILED; otherwise it books one
// more attempt and moves out by the given delay.
func (p *DeliveryProcessor) retryOrFail(ctx context.Context, n domain.Notification, errMsg string, delay time.Duration) {
	if n.RetryCount >= p.maxRetries {
		if err := p.notifications.MarkFailed(ctx, n.ID, errMsg); err != nil {
			p.logger.Error("failed to mark notification failed", zap.String("id", n.ID), zap.Error(err))
			return
		}
		p.metrics.IncFailed(n.Category.String())
		return
	}

	if err := p.notifications.Reschedule(ctx, n.ID, p.now().Add(delay), errMsg); err != nil {
		p.logger.Error("failed to reschedule notification", zap.String("id", n.ID), zap.Error(err))
		return
	}
	p.metrics.IncRescheduled("delivery_failure")
}

// rescheduleThrottled pushes a record out without consuming a retry attempt:
// throttling is not failure.
func (p *DeliveryProcessor) rescheduleThrottled(ctx context.Context, n domain.Notification, delay time.Duration, cause string) {
	if err := p.notifications.RescheduleWithoutRetry(ctx, n.ID, p.now().Add(delay)); err != nil {
		p.logger.Error("failed to reschedule throttled notification", zap.String("id", n.ID), zap.Error(err))
		return
	}
	p.metrics.IncRescheduled(cause)
}

func (p *DeliveryProcessor) skip(ctx context.Context, n domain.Notification, reason string) {
	if err := p.notifications.MarkSkipped(ctx, n.ID, reason); err != nil {
		p.logger.Error("failed to mark notification skipped",
			zap.String("id", n.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	p.metrics.IncSkipped(reason)
}

func (p *DeliveryProcessor) reserveDailyBudget(ctx context.Context, token string) bool {
	if p.tokenCap == nil {
		return true
	}
	allowed, err := p.tokenCap.TryReserve(ctx, token)
	if err != nil {
		// The cap guard is advisory; on error the provider's own limit is
		// still the backstop.
		p.logger.Warn("token daily cap check failed, allowing delivery", zap.Error(err))
		return true
	}
	return allowed
}

func (p *DeliveryProcessor) tryBeginPass() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.running || (!p.lastStarted.IsZero() && now.Sub(p.lastStarted) < minPassInterval) {
		return false
	}

	p.running = true
	p.lastStarted = now
	return true
}

func (p *DeliveryProcessor) endPass() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	idx := attempt - 1
	if idx >= len(retryBackoff) {
		idx = len(retryBackoff) - 1
	}
	return retryBackoff[idx]
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
