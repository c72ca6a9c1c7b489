package service

import (
	"sync"
	"testing"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueLoan_Success(t *testing.T) {
	f := newEngineFixture(t)
	monthly := dec("100")
	notes := "school fees"

	loan, err := f.loanSvc.IssueLoan(f.ctx, f.actor, IssueLoanInput{
		GroupID: f.group.ID, MemberID: f.alice.ID, Principal: dec("1000"), MonthlyRepayment: &monthly, Notes: &notes,
	})
	require.NoError(t, err)
	assert.True(t, loan.OutstandingBalance.Equal(dec("1000")))
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, f.admin.ID, loan.IssuedBy)
	assert.True(t, loan.RepaidAmount().IsZero())

	sent := f.notifier.All()
	require.Len(t, sent, 1)
	assert.Equal(t, f.alice.ID, sent[0].MemberID)
	assert.Equal(t, "Loan issued", sent[0].Title)
	assert.Equal(t, domain.NotificationTypeLoan, sent[0].Type)
	assert.Equal(t, "/loans/"+loan.ID.String(), sent[0].LinkHint)
}

func TestIssueLoan_Validation(t *testing.T) {
	f := newEngineFixture(t)
	otherGroup := f.groups.AddGroup("Other")
	outsider := f.members.AddMember(otherGroup.ID, "carol", domain.MemberRoleMember)
	zero := decimal.Zero

	tests := []struct {
		name    string
		input   IssueLoanInput
		wantErr error
	}{
		{"zero principal", IssueLoanInput{GroupID: f.group.ID, MemberID: f.alice.ID, Principal: decimal.Zero}, domain.ErrPrincipalInvalid},
		{"negative principal", IssueLoanInput{GroupID: f.group.ID, MemberID: f.alice.ID, Principal: dec("-1")}, domain.ErrPrincipalInvalid},
		{"zero monthly repayment", IssueLoanInput{GroupID: f.group.ID, MemberID: f.alice.ID, Principal: dec("10"), MonthlyRepayment: &zero}, domain.ErrMonthlyRepaymentInvalid},
		{"missing member", IssueLoanInput{GroupID: f.group.ID, Principal: dec("10")}, domain.ErrMemberRequired},
		{"unknown member", IssueLoanInput{GroupID: f.group.ID, MemberID: uuid.New(), Principal: dec("10")}, domain.ErrMemberNotFound},
		{"member outside group", IssueLoanInput{GroupID: f.group.ID, MemberID: outsider.ID, Principal: dec("10")}, domain.ErrMemberNotInGroup},
		{"unknown group", IssueLoanInput{GroupID: uuid.New(), MemberID: f.alice.ID, Principal: dec("10")}, domain.ErrGroupNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.loanSvc.IssueLoan(f.ctx, f.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.loans.Loans)
	assert.Empty(t, f.notifier.All())
}

func TestRecordRepayment_ClampsOverpayment(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("1000"))

	first, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("400")})
	require.NoError(t, err)
	assert.True(t, first.Loan.OutstandingBalance.Equal(dec("600")))
	assert.Equal(t, domain.LoanStatusActive, first.Loan.Status)
	assert.Equal(t, domain.RepaymentTypeManual, first.Repayment.RepaymentType)
	assert.True(t, first.Repayment.AppliedAmount.Equal(dec("400")))

	second, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{
		LoanID: loan.ID, Amount: dec("700"), RepaymentType: domain.RepaymentTypeBankTransfer,
	})
	require.NoError(t, err)
	assert.True(t, second.Loan.OutstandingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusPaid, second.Loan.Status)
	assert.True(t, second.Repayment.Amount.Equal(dec("700")))
	assert.True(t, second.Repayment.AppliedAmount.Equal(dec("600")))

	repayments, err := f.loanSvc.ListRepayments(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, repayments, 2)

	assert.Equal(t, []string{"Loan repayment received", "Loan repayment received", "Loan fully repaid"}, f.notifier.Titles())
	assert.Equal(t, []string{"loan.repaid", "loan.repaid"}, f.publisher.For(f.admin.ID))
	assert.Equal(t, []string{"loan.repaid", "loan.repaid"}, f.publisher.For(f.alice.ID))
	assert.Empty(t, f.publisher.For(f.bob.ID))
}

func TestRecordRepayment_OnPaidLoanRejected(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("100"))

	_, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("100")})
	require.NoError(t, err)

	_, err = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("10")})
	assert.ErrorIs(t, err, domain.ErrLoanAlreadyPaid)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	repayments, _ := f.loanSvc.ListRepayments(f.ctx, loan.ID)
	assert.Len(t, repayments, 1)
}

func TestRecordRepayment_Validation(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("100"))

	_, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrAmountInvalid)

	_, err = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("-5")})
	assert.ErrorIs(t, err, domain.ErrAmountInvalid)

	_, err = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("5"), RepaymentType: "cash"})
	assert.ErrorIs(t, err, domain.ErrRepaymentTypeInvalid)

	_, err = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: uuid.New(), Amount: dec("5")})
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)

	stored, _ := f.loanSvc.GetLoan(f.ctx, loan.ID)
	assert.True(t, stored.OutstandingBalance.Equal(dec("100")))
}

func TestRecordRepayment_ConcurrentRepaymentsNeverOverdraw(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("500"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("300")})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := f.loanSvc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusPaid, stored.Status)

	repayments, _ := f.loanSvc.ListRepayments(f.ctx, loan.ID)
	require.Len(t, repayments, 2)
	applied := repayments[0].AppliedAmount.Add(repayments[1].AppliedAmount)
	assert.True(t, applied.Equal(dec("500")))
}

func TestRecordRepayment_ManyConcurrentStaysConsistent(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("1000"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("100")})
		}()
	}
	wg.Wait()

	rec, err := f.loanSvc.ReconcileLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.StoredBalance.Equal(dec("200")))
}

func TestDeleteLoan_SoftDeletesAndKeepsHistory(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("300"))

	_, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("100")})
	require.NoError(t, err)

	require.NoError(t, f.loanSvc.DeleteLoan(f.ctx, f.actor, loan.ID))

	listed, err := f.loanSvc.ListLoansByGroup(f.ctx, f.group.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	archived, err := f.loanSvc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.NotNil(t, archived.DeletedAt)

	repayments, err := f.loanSvc.ListRepayments(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, repayments, 1)

	titles := f.notifier.Titles()
	assert.Equal(t, "Loan removed", titles[len(titles)-1])

	_, err = f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("10")})
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)

	err = f.loanSvc.DeleteLoan(f.ctx, f.actor, loan.ID)
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestListLoansByMember(t *testing.T) {
	f := newEngineFixture(t)
	f.loans.AddLoan(f.group.ID, f.alice.ID, dec("100"))
	f.loans.AddLoan(f.group.ID, f.alice.ID, dec("200"))
	f.loans.AddLoan(f.group.ID, f.bob.ID, dec("300"))

	loans, err := f.loanSvc.ListLoansByMember(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, loans, 2)
}

func TestReconcileLoan_DetectsDrift(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("1000"))

	_, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("250")})
	require.NoError(t, err)

	rec, err := f.loanSvc.ReconcileLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.DerivedBalance.Equal(dec("750")))
	assert.True(t, rec.TotalRepayments.Equal(dec("250")))

	f.loans.SetBalance(loan.ID, dec("800"))
	rec, err = f.loanSvc.ReconcileLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.True(t, rec.StoredBalance.Equal(dec("800")))
}

func TestReconcileLoan_OverpaymentClampsDerivedBalance(t *testing.T) {
	f := newEngineFixture(t)
	loan := f.loans.AddLoan(f.group.ID, f.alice.ID, dec("100"))

	_, err := f.loanSvc.RecordRepayment(f.ctx, f.actor, RecordRepaymentInput{LoanID: loan.ID, Amount: dec("150")})
	require.NoError(t, err)

	rec, err := f.loanSvc.ReconcileLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, rec.DerivedBalance.IsZero())
	assert.True(t, rec.Consistent)
}
