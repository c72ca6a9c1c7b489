package service

import (
	"context"
	"testing"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

// engineFixture wires the accounting services to in-memory repositories with
// one group of an admin and two members
type engineFixture struct {
	tx         *testutil.MockTransactor
	groups     *testutil.MockGroupRepository
	members    *testutil.MockMemberRepository
	periods    *testutil.MockPeriodRepository
	payments   *testutil.MockPaymentRepository
	events     *testutil.MockPaymentEventRepository
	loans      *testutil.MockLoanRepository
	repayments *testutil.MockLoanRepaymentRepository
	notifier   *testutil.CapturingNotifier
	publisher  *testutil.CapturingPublisher
	paymentSvc *PaymentService
	periodSvc  *PeriodService
	loanSvc    *LoanService
	group      *domain.Group
	admin      *domain.Member
	alice      *domain.Member
	bob        *domain.Member
	actor      domain.Actor
	ctx        context.Context
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		tx:         testutil.NewMockTransactor(),
		groups:     testutil.NewMockGroupRepository(),
		members:    testutil.NewMockMemberRepository(),
		payments:   testutil.NewMockPaymentRepository(),
		events:     testutil.NewMockPaymentEventRepository(),
		loans:      testutil.NewMockLoanRepository(),
		repayments: testutil.NewMockLoanRepaymentRepository(),
		notifier:   &testutil.CapturingNotifier{},
		publisher:  &testutil.CapturingPublisher{},
		ctx:        context.Background(),
	}
	f.periods = testutil.NewMockPeriodRepository(f.payments)

	f.group = f.groups.AddGroup("Family Kitty")
	f.admin = f.members.AddMember(f.group.ID, "admin", domain.MemberRoleAdmin)
	f.alice = f.members.AddMember(f.group.ID, "alice", domain.MemberRoleMember)
	f.bob = f.members.AddMember(f.group.ID, "bob", domain.MemberRoleMember)
	f.actor = domain.Actor{MemberID: f.admin.ID, AuthSubject: f.admin.AuthSubject}

	f.paymentSvc = NewPaymentService(f.tx, f.members, f.periods, f.payments, f.events, f.notifier)
	f.paymentSvc.SetEventPublisher(f.publisher)
	f.periodSvc = NewPeriodService(f.tx, f.groups, f.members, f.periods, f.payments)
	f.periodSvc.SetEventPublisher(f.publisher)
	f.loanSvc = NewLoanService(f.tx, f.groups, f.members, f.loans, f.repayments, f.notifier)
	f.loanSvc.SetEventPublisher(f.publisher)
	return f
}

// openPeriod adds March 2025 with 500 per member
func (f *engineFixture) openPeriod() *domain.ContributionPeriod {
	return f.periods.AddPeriod(f.group.ID, 2025, 3, decimal.NewFromInt(500), decimal.NewFromInt(1500))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
