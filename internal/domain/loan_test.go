package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyRepaymentAmount(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		amount      string
		wantBalance string
		wantStatus  LoanStatus
	}{
		{"partial", "1000", "400", "600.00", LoanStatusActive},
		{"exact", "600", "600", "0.00", LoanStatusPaid},
		{"overpayment clamps", "600", "700", "0.00", LoanStatusPaid},
		{"cents", "100.50", "0.25", "100.25", LoanStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, status := ApplyRepaymentAmount(decimal.RequireFromString(tt.balance), decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.wantBalance, balance.StringFixed(2))
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, balance.IsNegative())
		})
	}
}

func TestParseRepaymentType(t *testing.T) {
	tests := []struct {
		input string
		want  RepaymentType
	}{
		{"", RepaymentTypeManual},
		{"manual", RepaymentTypeManual},
		{"auto_deduction", RepaymentTypeAutoDeduction},
		{"contribution_deduction", RepaymentTypeAutoDeduction},
		{"Auto-Deduction", RepaymentTypeAutoDeduction},
		{"partial", RepaymentTypePartial},
		{"bank-transfer", RepaymentTypeBankTransfer},
		{"bank_transfer", RepaymentTypeBankTransfer},
	}
	for _, tt := range tests {
		got, err := ParseRepaymentType(tt.input)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.True(t, got.IsValid())
	}

	_, err := ParseRepaymentType("cash")
	assert.ErrorIs(t, err, ErrRepaymentTypeInvalid)
	assert.False(t, RepaymentType("cash").IsValid())
}

func TestLoan_Validate(t *testing.T) {
	monthly := decimal.NewFromInt(100)
	loan := Loan{MemberID: uuid.New(), PrincipalAmount: decimal.NewFromInt(1000), MonthlyRepayment: &monthly}
	assert.NoError(t, loan.Validate())

	bad := loan
	bad.PrincipalAmount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, bad.Validate(), ErrPrincipalInvalid)

	zero := decimal.Zero
	bad = loan
	bad.MonthlyRepayment = &zero
	assert.ErrorIs(t, bad.Validate(), ErrMonthlyRepaymentInvalid)

	bad = loan
	bad.MemberID = uuid.Nil
	assert.ErrorIs(t, bad.Validate(), ErrMemberRequired)
}

func TestLoan_RepaidAmount(t *testing.T) {
	loan := Loan{PrincipalAmount: decimal.NewFromInt(1000), OutstandingBalance: decimal.NewFromInt(350)}
	assert.Equal(t, "650", loan.RepaidAmount().String())
}
