package handler

import (
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodResponse represents a contribution period in API responses
type PeriodResponse struct {
	ID                     string  `json:"id"`
	GroupID                string  `json:"groupId"`
	Year                   int     `json:"year"`
	Month                  int     `json:"month"`
	Label                  string  `json:"label"`
	BeneficiaryID          *string `json:"beneficiaryId,omitempty"`
	BeneficiaryBankName    *string `json:"beneficiaryBankName,omitempty"`
	BeneficiaryBankAccount *string `json:"beneficiaryBankAccount,omitempty"`
	PerMemberAmount        string  `json:"perMemberAmount"`
	TotalExpected          string  `json:"totalExpected"`
	TotalCollected         string  `json:"totalCollected"`
	Outstanding            string  `json:"outstanding"`
	IsFinalized            bool    `json:"isFinalized"`
	FinalizedAt            *string `json:"finalizedAt,omitempty"`
	CreatedAt              string  `json:"createdAt"`
	UpdatedAt              string  `json:"updatedAt"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          string `json:"id"`
	PeriodID    string `json:"periodId"`
	MemberID    string `json:"memberId"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	PaymentDate string `json:"paymentDate"`
	RecordedBy  string `json:"recordedBy"`
	HasReceipt  bool   `json:"hasReceipt"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// PaymentResultResponse is a payment together with its recomputed period
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Period  PeriodResponse  `json:"period"`
}

// PeriodSummaryResponse is a period with its payments
type PeriodSummaryResponse struct {
	Period    PeriodResponse    `json:"period"`
	Payments  []PaymentResponse `json:"payments"`
	PaidCount int               `json:"paidCount"`
}

// PaymentEventResponse represents a payment log entry
type PaymentEventResponse struct {
	ID         string `json:"id"`
	PaymentID  string `json:"paymentId"`
	Kind       string `json:"kind"`
	MemberID   string `json:"memberId"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	ActorID    string `json:"actorId"`
	OccurredAt string `json:"occurredAt"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID                 string  `json:"id"`
	GroupID            string  `json:"groupId"`
	MemberID           string  `json:"memberId"`
	PrincipalAmount    string  `json:"principalAmount"`
	OutstandingBalance string  `json:"outstandingBalance"`
	RepaidAmount       string  `json:"repaidAmount"`
	MonthlyRepayment   *string `json:"monthlyRepayment,omitempty"`
	Status             string  `json:"status"`
	IssuedDate         string  `json:"issuedDate"`
	IssuedBy           string  `json:"issuedBy"`
	Notes              *string `json:"notes,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
	DeletedAt          *string `json:"deletedAt,omitempty"`
}

// RepaymentResponse represents a loan repayment in API responses
type RepaymentResponse struct {
	ID            string  `json:"id"`
	LoanID        string  `json:"loanId"`
	Amount        string  `json:"amount"`
	AppliedAmount string  `json:"appliedAmount"`
	RepaymentType string  `json:"repaymentType"`
	Notes         *string `json:"notes,omitempty"`
	RecordedBy    string  `json:"recordedBy"`
	RepaymentDate string  `json:"repaymentDate"`
}

// LoanDetailResponse is a loan with its repayment history
type LoanDetailResponse struct {
	Loan       LoanResponse        `json:"loan"`
	Repayments []RepaymentResponse `json:"repayments"`
}

// RepaymentResultResponse is a repayment with the updated loan
type RepaymentResultResponse struct {
	Loan      LoanResponse      `json:"loan"`
	Repayment RepaymentResponse `json:"repayment"`
}

// ReconciliationResponse compares stored and derived loan balances
type ReconciliationResponse struct {
	LoanID          string `json:"loanId"`
	StoredBalance   string `json:"storedBalance"`
	DerivedBalance  string `json:"derivedBalance"`
	TotalRepayments string `json:"totalRepayments"`
	Consistent      bool   `json:"consistent"`
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	LinkHint  string `json:"linkHint,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// NotificationListResponse is a page of notifications with the unread count
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatOptionalUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toPeriodResponse(p *domain.ContributionPeriod) PeriodResponse {
	return PeriodResponse{
		ID:                     p.ID.String(),
		GroupID:                p.GroupID.String(),
		Year:                   p.Year,
		Month:                  p.Month,
		Label:                  p.Label(),
		BeneficiaryID:          formatOptionalUUID(p.BeneficiaryID),
		BeneficiaryBankName:    p.BeneficiaryBankName,
		BeneficiaryBankAccount: p.BeneficiaryBankAccount,
		PerMemberAmount:        formatMoney(p.PerMemberAmount),
		TotalExpected:          formatMoney(p.TotalExpected),
		TotalCollected:         formatMoney(p.TotalCollected),
		Outstanding:            formatMoney(p.Outstanding()),
		IsFinalized:            p.IsFinalized,
		FinalizedAt:            formatOptionalTime(p.FinalizedAt),
		CreatedAt:              formatTime(p.CreatedAt),
		UpdatedAt:              formatTime(p.UpdatedAt),
	}
}

func toPeriodResponses(periods []*domain.ContributionPeriod) []PeriodResponse {
	out := make([]PeriodResponse, len(periods))
	for i, p := range periods {
		out[i] = toPeriodResponse(p)
	}
	return out
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID.String(),
		PeriodID:    p.PeriodID.String(),
		MemberID:    p.MemberID.String(),
		Amount:      formatMoney(p.Amount),
		Status:      string(p.Status),
		PaymentDate: formatTime(p.PaymentDate),
		RecordedBy:  p.RecordedBy.String(),
		HasReceipt:  p.ReceiptPath != nil,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func toPaymentResponses(payments []*domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = toPaymentResponse(p)
	}
	return out
}

func toPaymentEventResponses(events []*domain.PaymentEvent) []PaymentEventResponse {
	out := make([]PaymentEventResponse, len(events))
	for i, e := range events {
		out[i] = PaymentEventResponse{
			ID:         e.ID.String(),
			PaymentID:  e.PaymentID.String(),
			Kind:       string(e.Kind),
			MemberID:   e.MemberID.String(),
			Amount:     formatMoney(e.Amount),
			Status:     string(e.Status),
			ActorID:    e.ActorID.String(),
			OccurredAt: formatTime(e.OccurredAt),
		}
	}
	return out
}

func toLoanResponse(l *domain.Loan) LoanResponse {
	var monthly *string
	if l.MonthlyRepayment != nil {
		s := formatMoney(*l.MonthlyRepayment)
		monthly = &s
	}
	return LoanResponse{
		ID:                 l.ID.String(),
		GroupID:            l.GroupID.String(),
		MemberID:           l.MemberID.String(),
		PrincipalAmount:    formatMoney(l.PrincipalAmount),
		OutstandingBalance: formatMoney(l.OutstandingBalance),
		RepaidAmount:       formatMoney(l.RepaidAmount()),
		MonthlyRepayment:   monthly,
		Status:             string(l.Status),
		IssuedDate:         formatTime(l.IssuedDate),
		IssuedBy:           l.IssuedBy.String(),
		Notes:              l.Notes,
		CreatedAt:          formatTime(l.CreatedAt),
		UpdatedAt:          formatTime(l.UpdatedAt),
		DeletedAt:          formatOptionalTime(l.DeletedAt),
	}
}

func toLoanResponses(loans []*domain.Loan) []LoanResponse {
	out := make([]LoanResponse, len(loans))
	for i, l := range loans {
		out[i] = toLoanResponse(l)
	}
	return out
}

func toRepaymentResponse(r *domain.LoanRepayment) RepaymentResponse {
	return RepaymentResponse{
		ID:            r.ID.String(),
		LoanID:        r.LoanID.String(),
		Amount:        formatMoney(r.Amount),
		AppliedAmount: formatMoney(r.AppliedAmount),
		RepaymentType: string(r.RepaymentType),
		Notes:         r.Notes,
		RecordedBy:    r.RecordedBy.String(),
		RepaymentDate: formatTime(r.RepaymentDate),
	}
}

func toRepaymentResponses(repayments []*domain.LoanRepayment) []RepaymentResponse {
	out := make([]RepaymentResponse, len(repayments))
	for i, r := range repayments {
		out[i] = toRepaymentResponse(r)
	}
	return out
}

func toNotificationResponses(notifications []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = toNotificationResponse(n)
	}
	return out
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		LinkHint:  n.LinkHint,
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
	}
}
