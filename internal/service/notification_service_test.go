package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingNotificationRepo() *testutil.MockNotificationRepository {
	repo := testutil.NewMockNotificationRepository()
	repo.CreateErr = errors.New("connection refused")
	return repo
}

func TestNotificationService_DeliverPublishesEvent(t *testing.T) {
	repo := testutil.NewMockNotificationRepository()
	publisher := &testutil.CapturingPublisher{}
	svc := NewNotificationService(repo)
	svc.SetEventPublisher(publisher)

	memberID := uuid.New()
	err := svc.Deliver(context.Background(), &domain.Notification{
		MemberID: memberID,
		Title:    "  Payment received ",
		Message:  "Your payment of 500.00 for March 2025 has been recorded as paid.",
		Type:     domain.NotificationTypePayment,
		Read:     true,
	})
	require.NoError(t, err)

	stored := repo.ForMember(memberID)
	require.Len(t, stored, 1)
	assert.NotEqual(t, uuid.Nil, stored[0].ID)
	assert.Equal(t, "Payment received", stored[0].Title)
	assert.False(t, stored[0].Read)
	assert.False(t, stored[0].CreatedAt.IsZero())

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, memberID, publisher.Events[0].MemberID)
	assert.Equal(t, "notification.created", publisher.Events[0].Event.Type)
}

func TestNotificationService_DeliverFailureIsTyped(t *testing.T) {
	svc := NewNotificationService(failingNotificationRepo())
	memberID := uuid.New()

	err := svc.Deliver(context.Background(), &domain.Notification{MemberID: memberID, Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotificationDelivery)

	var delivery *domain.NotificationDeliveryError
	require.True(t, errors.As(err, &delivery))
	assert.Equal(t, memberID, delivery.MemberID)

	// Notify swallows the failure
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), &domain.Notification{MemberID: memberID, Title: "x"})
	})
}

func TestNotificationService_ReadOperations(t *testing.T) {
	repo := testutil.NewMockNotificationRepository()
	svc := NewNotificationService(repo)
	ctx := context.Background()
	memberID := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Deliver(ctx, &domain.Notification{MemberID: memberID, Title: "n"}))
	}
	require.NoError(t, svc.Deliver(ctx, &domain.Notification{MemberID: other, Title: "n"}))

	count, err := svc.CountUnread(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list, err := svc.ListForMember(ctx, memberID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)

	read, err := svc.MarkRead(ctx, memberID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	_, err = svc.MarkRead(ctx, other, list[1].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unread, err := svc.ListForMember(ctx, memberID, true, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := svc.MarkAllRead(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	count, _ = svc.CountUnread(ctx, memberID)
	assert.Equal(t, 0, count)
	count, _ = svc.CountUnread(ctx, other)
	assert.Equal(t, 1, count)
}

func TestNotificationService_ListLimitCapped(t *testing.T) {
	repo := testutil.NewMockNotificationRepository()
	svc := NewNotificationService(repo)
	ctx := context.Background()
	memberID := uuid.New()

	for i := 0; i < MaxNotificationListLimit+5; i++ {
		require.NoError(t, svc.Deliver(ctx, &domain.Notification{MemberID: memberID, Title: "n"}))
	}

	list, err := svc.ListForMember(ctx, memberID, false, 10000)
	require.NoError(t, err)
	assert.Len(t, list, MaxNotificationListLimit)
}

func newTestOutbox(buffer int) (*NotificationOutbox, *testutil.MockNotificationRepository) {
	repo := testutil.NewMockNotificationRepository()
	return NewNotificationOutbox(NewNotificationService(repo), zerolog.Nop(), buffer), repo
}

func TestNotificationOutbox_DeliversQueuedNotifications(t *testing.T) {
	outbox, repo := newTestOutbox(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outbox.Start(ctx)
	assert.True(t, outbox.IsRunning())

	memberID := uuid.New()
	for i := 0; i < 5; i++ {
		outbox.Notify(ctx, &domain.Notification{MemberID: memberID, Title: "queued"})
	}

	assert.Eventually(t, func() bool {
		return len(repo.ForMember(memberID)) == 5
	}, time.Second, 10*time.Millisecond)

	outbox.Stop()
	assert.False(t, outbox.IsRunning())
}

func TestNotificationOutbox_StopDrainsQueue(t *testing.T) {
	outbox, repo := newTestOutbox(64)
	ctx := context.Background()
	outbox.Start(ctx)

	memberID := uuid.New()
	for i := 0; i < 50; i++ {
		outbox.Notify(ctx, &domain.Notification{MemberID: memberID, Title: "drain"})
	}
	outbox.Stop()

	assert.Len(t, repo.ForMember(memberID), 50)
	assert.Equal(t, 0, outbox.Pending())
}

func TestNotificationOutbox_InlineWhenNotRunning(t *testing.T) {
	outbox, repo := newTestOutbox(1)
	memberID := uuid.New()

	outbox.Notify(context.Background(), &domain.Notification{MemberID: memberID, Title: "inline"})
	assert.Len(t, repo.ForMember(memberID), 1)
	assert.Equal(t, 0, outbox.Pending())
}

func TestNotificationOutbox_InlineAfterRequestContextCancelled(t *testing.T) {
	outbox, repo := newTestOutbox(1)
	memberID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outbox.Notify(ctx, &domain.Notification{MemberID: memberID, Title: "late"})
	assert.Len(t, repo.ForMember(memberID), 1)
}

func TestNotificationOutbox_StartTwiceAndStopTwice(t *testing.T) {
	outbox, _ := newTestOutbox(1)
	ctx := context.Background()

	outbox.Start(ctx)
	outbox.Start(ctx)
	assert.True(t, outbox.IsRunning())

	outbox.Stop()
	outbox.Stop()
	assert.False(t, outbox.IsRunning())
}

func TestNotificationOutbox_Restart(t *testing.T) {
	outbox, repo := newTestOutbox(8)
	ctx := context.Background()
	memberID := uuid.New()

	for round := 0; round < 3; round++ {
		require.NotPanics(t, func() {
			outbox.Start(ctx)
			outbox.Notify(ctx, &domain.Notification{MemberID: memberID, Title: "round"})
			outbox.Stop()
		})
		assert.False(t, outbox.IsRunning())
	}
	assert.Len(t, repo.ForMember(memberID), 3)
}

func TestNotificationOutbox_ConcurrentStop(t *testing.T) {
	outbox, _ := newTestOutbox(8)
	outbox.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outbox.Stop()
		}()
	}

	assert.NotPanics(t, wg.Wait)
	assert.False(t, outbox.IsRunning())
}

func TestNotificationOutbox_RestartAfterContextCancelled(t *testing.T) {
	outbox, repo := newTestOutbox(8)
	ctx, cancel := context.WithCancel(context.Background())
	outbox.Start(ctx)
	cancel()

	assert.Eventually(t, func() bool { return !outbox.IsRunning() }, time.Second, 5*time.Millisecond)

	outbox.Start(context.Background())
	memberID := uuid.New()
	outbox.Notify(context.Background(), &domain.Notification{MemberID: memberID, Title: "again"})
	outbox.Stop()

	assert.Len(t, repo.ForMember(memberID), 1)
}

func TestNotificationOutbox_FailuresAreSwallowed(t *testing.T) {
	outbox := NewNotificationOutbox(NewNotificationService(failingNotificationRepo()), zerolog.Nop(), 4)
	ctx := context.Background()
	outbox.Start(ctx)

	assert.NotPanics(t, func() {
		outbox.Notify(ctx, &domain.Notification{MemberID: uuid.New(), Title: "lost"})
	})
	outbox.Stop()
}

func TestPaymentEngine_WithOutboxDeliversAfterCommit(t *testing.T) {
	f := newEngineFixture(t)
	period := f.openPeriod()

	outbox, repo := newTestOutbox(16)
	outbox.Start(f.ctx)
	f.paymentSvc.notifier = outbox

	_, err := f.paymentSvc.RecordPayment(f.ctx, f.actor, RecordPaymentInput{
		PeriodID: period.ID, MemberID: f.alice.ID, Amount: dec("500"), Status: domain.PaymentStatusPaid,
	})
	require.NoError(t, err)
	outbox.Stop()

	sent := repo.ForMember(f.alice.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, "Payment received", sent[0].Title)
}
