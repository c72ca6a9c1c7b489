package handler

import (
	"net/http"
	"testing"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueLoan(t *testing.T, f *apiFixture, borrower *domain.Member, principal string) LoanResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/groups/"+f.group.ID.String()+"/loans", f.admin, map[string]string{
		"memberId":  borrower.ID.String(),
		"principal": principal,
	})
	requireStatus(t, rec, http.StatusCreated)
	return decode[LoanResponse](t, rec)
}

func TestIssueLoan(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/groups/"+f.group.ID.String()+"/loans", f.admin, map[string]string{
		"memberId":         f.alice.ID.String(),
		"principal":        "1000",
		"monthlyRepayment": "100",
		"notes":            "school fees",
	})
	requireStatus(t, rec, http.StatusCreated)

	loan := decode[LoanResponse](t, rec)
	assert.Equal(t, "1000.00", loan.PrincipalAmount)
	assert.Equal(t, "1000.00", loan.OutstandingBalance)
	assert.Equal(t, "0.00", loan.RepaidAmount)
	require.NotNil(t, loan.MonthlyRepayment)
	assert.Equal(t, "100.00", *loan.MonthlyRepayment)
	assert.Equal(t, "active", loan.Status)
	assert.Equal(t, f.admin.ID.String(), loan.IssuedBy)

	inbox := f.notifications.ForMember(f.alice.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Loan issued", inbox[0].Title)
	assert.Equal(t, "/loans/"+loan.ID, inbox[0].LinkHint)
}

func TestIssueLoan_Validation(t *testing.T) {
	f := newAPIFixture(t)
	path := "/groups/" + f.group.ID.String() + "/loans"

	tests := []struct {
		name   string
		body   map[string]string
		status int
		field  string
	}{
		{"zero principal", map[string]string{"memberId": f.alice.ID.String(), "principal": "0"}, http.StatusBadRequest, "principal"},
		{"negative monthly", map[string]string{"memberId": f.alice.ID.String(), "principal": "10", "monthlyRepayment": "-5"}, http.StatusBadRequest, "monthlyRepayment"},
		{"borrower outside group", map[string]string{"memberId": f.outsider.ID.String(), "principal": "10"}, http.StatusBadRequest, "memberId"},
		{"malformed member", map[string]string{"memberId": "nope", "principal": "10"}, http.StatusBadRequest, "memberId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, path, f.admin, tt.body)
			requireStatus(t, rec, tt.status)
			p := problemOf(t, rec)
			require.NotEmpty(t, p.Errors)
			assert.Equal(t, tt.field, p.Errors[0].Field)
		})
	}

	assert.Empty(t, f.loans.Loans)
}

func TestRecordRepayment_PartialThenOverpay(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "1000")
	path := "/loans/" + loan.ID + "/repayments"

	rec := f.do(t, http.MethodPost, path, f.admin, `{"amount": "400", "repaymentType": "bank_transfer"}`)
	requireStatus(t, rec, http.StatusCreated)
	first := decode[RepaymentResultResponse](t, rec)
	assert.Equal(t, "600.00", first.Loan.OutstandingBalance)
	assert.Equal(t, "active", first.Loan.Status)
	assert.Equal(t, "bank_transfer", first.Repayment.RepaymentType)
	assert.Equal(t, "400.00", first.Repayment.AppliedAmount)

	rec = f.do(t, http.MethodPost, path, f.admin, `{"amount": "750"}`)
	requireStatus(t, rec, http.StatusCreated)
	second := decode[RepaymentResultResponse](t, rec)
	assert.Equal(t, "0.00", second.Loan.OutstandingBalance)
	assert.Equal(t, "paid", second.Loan.Status)
	assert.Equal(t, "750.00", second.Repayment.Amount)
	assert.Equal(t, "600.00", second.Repayment.AppliedAmount)
	assert.Equal(t, "manual", second.Repayment.RepaymentType)

	titles := []string{}
	for _, n := range f.notifications.ForMember(f.alice.ID) {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"Loan issued", "Loan repayment received", "Loan repayment received", "Loan fully repaid"}, titles)

	rec = f.do(t, http.MethodPost, path, f.admin, `{"amount": "1"}`)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "loanId", problemOf(t, rec).Errors[0].Field)
	assert.Len(t, f.repayments.Repayments, 2)
}

func TestRecordRepayment_Validation(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "1000")
	path := "/loans/" + loan.ID + "/repayments"

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"zero", `{"amount": "0"}`, "amount"},
		{"three decimals", `{"amount": "1.005"}`, "amount"},
		{"unknown type", `{"amount": "10", "repaymentType": "cash"}`, "repaymentType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, path, f.admin, tt.body)
			requireStatus(t, rec, http.StatusBadRequest)
			assert.Equal(t, tt.field, problemOf(t, rec).Errors[0].Field)
		})
	}

	assert.Empty(t, f.repayments.Repayments)
}

func TestGetLoan_IncludesRepayments(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "300")
	requireStatus(t, f.do(t, http.MethodPost, "/loans/"+loan.ID+"/repayments", f.admin, `{"amount": "100"}`), http.StatusCreated)

	rec := f.do(t, http.MethodGet, "/loans/"+loan.ID, f.bob, nil)
	requireStatus(t, rec, http.StatusOK)

	detail := decode[LoanDetailResponse](t, rec)
	assert.Equal(t, "200.00", detail.Loan.OutstandingBalance)
	assert.Equal(t, "100.00", detail.Loan.RepaidAmount)
	require.Len(t, detail.Repayments, 1)
	assert.Equal(t, "100.00", detail.Repayments[0].Amount)
}

func TestReconcileLoan(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "500")
	requireStatus(t, f.do(t, http.MethodPost, "/loans/"+loan.ID+"/repayments", f.admin, `{"amount": "200"}`), http.StatusCreated)

	rec := f.do(t, http.MethodGet, "/loans/"+loan.ID+"/reconcile", f.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	result := decode[ReconciliationResponse](t, rec)
	assert.True(t, result.Consistent)
	assert.Equal(t, "300.00", result.DerivedBalance)

	f.loans.SetBalance(uuid.MustParse(loan.ID), dec("250"))

	rec = f.do(t, http.MethodGet, "/loans/"+loan.ID+"/reconcile", f.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	result = decode[ReconciliationResponse](t, rec)
	assert.False(t, result.Consistent)
	assert.Equal(t, "250.00", result.StoredBalance)
	assert.Equal(t, "300.00", result.DerivedBalance)
	assert.Equal(t, "200.00", result.TotalRepayments)
}

func TestDeleteLoan(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "500")

	rec := f.do(t, http.MethodDelete, "/loans/"+loan.ID, f.admin, nil)
	requireStatus(t, rec, http.StatusBadRequest)

	rec = f.do(t, http.MethodDelete, "/loans/"+loan.ID+"?confirm=true", f.admin, nil)
	requireStatus(t, rec, http.StatusNoContent)

	rec = f.do(t, http.MethodGet, "/groups/"+f.group.ID.String()+"/loans", f.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[[]LoanResponse](t, rec))

	// archived loans stay readable by id
	rec = f.do(t, http.MethodGet, "/loans/"+loan.ID, f.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.NotNil(t, decode[LoanDetailResponse](t, rec).Loan.DeletedAt)

	requireStatus(t, f.do(t, http.MethodPost, "/loans/"+loan.ID+"/repayments", f.admin, `{"amount": "1"}`), http.StatusNotFound)
	requireStatus(t, f.do(t, http.MethodDelete, "/loans/"+loan.ID+"?confirm=true", f.admin, nil), http.StatusNotFound)
}

func TestListMyLoans(t *testing.T) {
	f := newAPIFixture(t)
	issueLoan(t, f, f.alice, "100")
	issueLoan(t, f, f.alice, "200")
	issueLoan(t, f, f.bob, "300")

	rec := f.do(t, http.MethodGet, "/me/loans", f.alice, nil)
	requireStatus(t, rec, http.StatusOK)

	loans := decode[[]LoanResponse](t, rec)
	require.Len(t, loans, 2)
	for _, l := range loans {
		assert.Equal(t, f.alice.ID.String(), l.MemberID)
	}
}

func TestLoanRoutes_Authorization(t *testing.T) {
	f := newAPIFixture(t)
	loan := issueLoan(t, f, f.alice, "100")

	tests := []struct {
		name   string
		method string
		path   string
		as     *domain.Member
		status int
	}{
		{"member cannot repay", http.MethodPost, "/loans/" + loan.ID + "/repayments", f.alice, http.StatusForbidden},
		{"member cannot reconcile", http.MethodGet, "/loans/" + loan.ID + "/reconcile", f.alice, http.StatusForbidden},
		{"other group cannot read", http.MethodGet, "/loans/" + loan.ID, f.outsider, http.StatusForbidden},
		{"other group cannot list", http.MethodGet, "/groups/" + f.group.ID.String() + "/loans", f.outsider, http.StatusForbidden},
		{"unknown loan", http.MethodGet, "/loans/" + uuid.NewString(), f.admin, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/loans/abc", f.admin, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireStatus(t, f.do(t, tt.method, tt.path, tt.as, `{"amount": "1"}`), tt.status)
		})
	}
}
