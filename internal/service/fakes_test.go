package service

import (
	"context"
	"time"

	"github.com/selimacar/frame-notifier/internal/domain"
	"github.com/selimacar/frame-notifier/internal/provider"
	"github.com/selimacar/frame-notifier/internal/repository"
)

type fakeNotificationRepo struct {
	createFn                     func(ctx context.Context, n *domain.Notification) error
	getByIDFn                    func(ctx context.Context, id string) (*domain.Notification, error)
	findRecentByIdempotencyKeyFn func(ctx context.Context, fid uint64, key string, since time.Time) (*domain.Notification, error)
	getDeliverableFn             func(ctx context.Context, now time.Time, maxRetries int, limit int) ([]domain.Notification, error)
	listFn                       func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	markSentFn                   func(ctx context.Context, id string, sentAt time.Time) error
	markFailedFn                 func(ctx context.Context, id string, errMsg string) error
	markSkippedFn                func(ctx context.Context, id string, reason string) error
	rescheduleFn                 func(ctx context.Context, id string, at time.Time, errMsg string) error
	rescheduleWithoutRetryFn     func(ctx context.Context, id string, at time.Time) error
	skipPendingForRecipientFn    func(ctx context.Context, fid uint64, reason string) (int64, error)
	deleteTerminalOlderThanFn    func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, n)
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) FindRecentByIdempotencyKey(ctx context.Context, fid uint64, key string, since time.Time) (*domain.Notification, error) {
	if f.findRecentByIdempotencyKeyFn != nil {
		return f.findRecentByIdempotencyKeyFn(ctx, fid, key, since)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) GetDeliverable(ctx context.Context, now time.Time, maxRetries int, limit int) ([]domain.Notification, error) {
	if f.getDeliverableFn != nil {
		return f.getDeliverableFn(ctx, now, maxRetries, limit)
	}
	return nil, nil
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if f.markSentFn != nil {
		return f.markSentFn(ctx, id, sentAt)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	if f.markFailedFn != nil {
		return f.markFailedFn(ctx, id, errMsg)
	}
	return nil
}

func (f *fakeNotificationRepo) MarkSkipped(ctx context.Context, id string, reason string) error {
	if f.markSkippedFn != nil {
		return f.markSkippedFn(ctx, id, reason)
	}
	return nil
}

func (f *fakeNotificationRepo) Reschedule(ctx context.Context, id string, at time.Time, errMsg string) error {
	if f.rescheduleFn != nil {
		return f.rescheduleFn(ctx, id, at, errMsg)
	}
	return nil
}

func (f *fakeNotificationRepo) RescheduleWithoutRetry(ctx context.Context, id string, at time.Time) error {
	if f.rescheduleWithoutRetryFn != nil {
		return f.rescheduleWithoutRetryFn(ctx, id, at)
	}
	return nil
}

func (f *fakeNotificationRepo) SkipPendingForRecipient(ctx context.Context, fid uint64, reason string) (int64, error) {
	if f.skipPendingForRecipientFn != nil {
		return f.skipPendingForRecipientFn(ctx, fid, reason)
	}
	return 0, nil
}

func (f *fakeNotificationRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteTerminalOlderThanFn != nil {
		return f.deleteTerminalOlderThanFn(ctx, cutoff)
	}
	return 0, nil
}

type fakeRecipientRepo struct {
	getByFIDFn              func(ctx context.Context, fid uint64) (*domain.Recipient, error)
	upsertFn                func(ctx context.Context, r *domain.Recipient) error
	enableNotificationsFn   func(ctx context.Context, fid uint64, token string, endpoint string) error
	disableNotificationsFn  func(ctx context.Context, fid uint64) error
	setLastReminderSentAtFn func(ctx context.Context, fid uint64, at time.Time) error
	listEnabledWithTokenFn  func(ctx context.Context) ([]domain.Recipient, error)
}

func (f *fakeRecipientRepo) GetByFID(ctx context.Context, fid uint64) (*domain.Recipient, error) {
	if f.getByFIDFn != nil {
		return f.getByFIDFn(ctx, fid)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRecipientRepo) Upsert(ctx context.Context, r *domain.Recipient) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, r)
	}
	return nil
}

func (f *fakeRecipientRepo) EnableNotifications(ctx context.Context, fid uint64, token string, endpoint string) error {
	if f.enableNotificationsFn != nil {
		return f.enableNotificationsFn(ctx, fid, token, endpoint)
	}
	return nil
}

func (f *fakeRecipientRepo) DisableNotifications(ctx context.Context, fid uint64) error {
	if f.disableNotificationsFn != nil {
		return f.disableNotificationsFn(ctx, fid)
	}
	return nil
}

func (f *fakeRecipientRepo) SetLastReminderSentAt(ctx context.Context, fid uint64, at time.Time) error {
	if f.setLastReminderSentAtFn != nil {
		return f.setLastReminderSentAtFn(ctx, fid, at)
	}
	return nil
}

func (f *fakeRecipientRepo) ListEnabledWithToken(ctx context.Context) ([]domain.Recipient, error) {
	if f.listEnabledWithTokenFn != nil {
		return f.listEnabledWithTokenFn(ctx)
	}
	return nil, nil
}

type fakeProvider struct {
	sendBatchFn func(ctx context.Context, endpoint string, req provider.BatchRequest) (*provider.BatchResult, error)
	calls       []provider.BatchRequest
}

func (f *fakeProvider) SendBatch(ctx context.Context, endpoint string, req provider.BatchRequest) (*provider.BatchResult, error) {
	f.calls = append(f.calls, req)
	if f.sendBatchFn != nil {
		return f.sendBatchFn(ctx, endpoint, req)
	}
	statuses := make(map[string]provider.TokenStatus, len(req.Tokens))
	for _, token := range req.Tokens {
		statuses[token] = provider.TokenDelivered
	}
	return &provider.BatchResult{Statuses: statuses}, nil
}

type fakeLimiter struct {
	tryReserveFn func(endpoint string, count int) bool
}

func (f *fakeLimiter) TryReserve(endpoint string, count int) bool {
	if f.tryReserveFn != nil {
		return f.tryReserveFn(endpoint, count)
	}
	return true
}

func (f *fakeLimiter) Reset() {}

func (f *fakeLimiter) Snapshot() map[string]int { return nil }

type fakeTokenCap struct {
	tryReserveFn func(ctx context.Context, token string) (bool, error)
}

func (f *fakeTokenCap) TryReserve(ctx context.Context, token string) (bool, error) {
	if f.tryReserveFn != nil {
		return f.tryReserveFn(ctx, token)
	}
	return true, nil
}

type fakeEnqueuer struct {
	enqueueFn func(ctx context.Context, params EnqueueParams) bool
	calls     []EnqueueParams
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, params EnqueueParams) bool {
	f.calls = append(f.calls, params)
	if f.enqueueFn != nil {
		return f.enqueueFn(ctx, params)
	}
	return true
}

type fakeActivityChecker struct {
	hasVotedTodayFn func(ctx context.Context, fid uint64, day time.Time) (bool, error)
}

func (f *fakeActivityChecker) HasVotedToday(ctx context.Context, fid uint64, day time.Time) (bool, error) {
	if f.hasVotedTodayFn != nil {
		return f.hasVotedTodayFn(ctx, fid, day)
	}
	return false, nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
