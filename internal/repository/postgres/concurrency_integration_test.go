//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/migrations"
	"github.com/dafibh/kitty/kitty-backend/internal/repository/postgres"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/dafibh/kitty/kitty-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: KITTY_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("KITTY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("KITTY_TEST_DATABASE_URL not set")
	}
	require.NoError(t, migrations.Run(url))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// seedGroup inserts a group with one admin and n regular members
func seedGroup(t *testing.T, pool *pgxpool.Pool, n int) (groupID, adminID uuid.UUID, members []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	groupID = uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO groups (id, name) VALUES ($1, $2)`, groupID, "Integration "+groupID.String()[:8])
	require.NoError(t, err)

	insert := func(name, role string) uuid.UUID {
		id := uuid.New()
		_, err := pool.Exec(ctx,
			`INSERT INTO members (id, group_id, auth_subject, name, role) VALUES ($1, $2, $3, $4, $5)`,
			id, groupID, "integration|"+id.String(), name, role)
		require.NoError(t, err)
		return id
	}
	adminID = insert("admin", "admin")
	for i := 0; i < n; i++ {
		members = append(members, insert(fmt.Sprintf("member-%d", i), "member"))
	}
	return groupID, adminID, members
}

// runConcurrently starts fn n times at once and returns each call's error
func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestLoanRepayments_ConcurrentRepaymentsClampAtZero(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	groupID, adminID, members := seedGroup(t, pool, 1)

	svc := service.NewLoanService(
		postgres.NewTransactor(pool),
		postgres.NewGroupRepository(pool),
		postgres.NewMemberRepository(pool),
		postgres.NewLoanRepository(pool),
		postgres.NewLoanRepaymentRepository(pool),
		&testutil.CapturingNotifier{},
	)
	actor := domain.Actor{MemberID: adminID}

	loan, err := svc.IssueLoan(ctx, actor, service.IssueLoanInput{
		GroupID: groupID, MemberID: members[0], Principal: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	// 3 x 300 against 500: two land (300 then 200), the third finds it paid
	errs := runConcurrently(3, func(int) error {
		_, err := svc.RecordRepayment(ctx, actor, service.RecordRepaymentInput{
			LoanID: loan.ID, Amount: decimal.NewFromInt(300),
		})
		return err
	})
	var ok, alreadyPaid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrLoanAlreadyPaid):
			alreadyPaid++
		default:
			t.Fatalf("unexpected repayment error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, alreadyPaid)

	stored, err := svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero(), "balance %s", stored.OutstandingBalance)
	assert.Equal(t, domain.LoanStatusPaid, stored.Status)

	repayments, err := svc.ListRepayments(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, repayments, 2)
	applied := []string{repayments[0].AppliedAmount.StringFixed(2), repayments[1].AppliedAmount.StringFixed(2)}
	sort.Strings(applied)
	assert.Equal(t, []string{"200.00", "300.00"}, applied)

	rec, err := svc.ReconcileLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestPayments_ConcurrentRecordingKeepsCollectedTotal(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	const members = 6
	groupID, adminID, memberIDs := seedGroup(t, pool, members)

	periodID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO contribution_periods (id, group_id, year, month, per_member_amount, total_expected, created_by)
		VALUES ($1, $2, 2025, 3, 100, 700, $3)`, periodID, groupID, adminID)
	require.NoError(t, err)

	tx := postgres.NewTransactor(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	periodRepo := postgres.NewPeriodRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	paymentSvc := service.NewPaymentService(tx, memberRepo, periodRepo, paymentRepo,
		postgres.NewPaymentEventRepository(pool), &testutil.CapturingNotifier{})
	periodSvc := service.NewPeriodService(tx, postgres.NewGroupRepository(pool), memberRepo, periodRepo, paymentRepo)
	actor := domain.Actor{MemberID: adminID}

	errs := runConcurrently(members, func(i int) error {
		_, err := paymentSvc.RecordPayment(ctx, actor, service.RecordPaymentInput{
			PeriodID: periodID, MemberID: memberIDs[i], Amount: decimal.NewFromInt(100), Status: domain.PaymentStatusPaid,
		})
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	period, err := periodSvc.GetPeriod(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, "600.00", period.TotalCollected.StringFixed(2))

	// A rescan finds nothing to correct
	recomputed, err := periodSvc.RecomputeCollected(ctx, periodID)
	require.NoError(t, err)
	assert.Equal(t, "600.00", recomputed.TotalCollected.StringFixed(2))
}
