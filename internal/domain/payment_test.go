package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParsePaymentStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    PaymentStatus
		wantErr bool
	}{
		{"paid", PaymentStatusPaid, false},
		{" PAID ", PaymentStatusPaid, false},
		{"pending", PaymentStatusPending, false},
		{"Partial", PaymentStatusPartial, false},
		{"overdue", PaymentStatusOverdue, false},
		{"rejected", PaymentStatusOverdue, false},
		{"", "", true},
		{"refunded", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePaymentStatus(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPaymentStatusInvalid)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSumCollected_OnlyPaid(t *testing.T) {
	payments := []*Payment{
		{Amount: decimal.RequireFromString("500.00"), Status: PaymentStatusPaid},
		{Amount: decimal.RequireFromString("300.00"), Status: PaymentStatusPartial},
		{Amount: decimal.RequireFromString("0.10"), Status: PaymentStatusPaid},
		{Amount: decimal.RequireFromString("0.20"), Status: PaymentStatusPaid},
		{Amount: decimal.RequireFromString("50.00"), Status: PaymentStatusOverdue},
		{Amount: decimal.RequireFromString("75.00"), Status: PaymentStatusPending},
	}

	assert.Equal(t, "500.30", SumCollected(payments).StringFixed(2))
	assert.True(t, SumCollected(nil).IsZero())
}

func TestPayment_Validate(t *testing.T) {
	valid := Payment{MemberID: uuid.New(), Amount: decimal.NewFromInt(1), Status: PaymentStatusPaid}
	assert.NoError(t, valid.Validate())

	noMember := valid
	noMember.MemberID = uuid.Nil
	assert.ErrorIs(t, noMember.Validate(), ErrMemberRequired)

	zero := valid
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), ErrAmountInvalid)

	badStatus := valid
	badStatus.Status = "void"
	assert.ErrorIs(t, badStatus.Validate(), ErrPaymentStatusInvalid)
}

func TestNewPaymentEvent_SnapshotsPayment(t *testing.T) {
	p := &Payment{
		ID:       uuid.New(),
		PeriodID: uuid.New(),
		MemberID: uuid.New(),
		Amount:   decimal.NewFromInt(250),
		Status:   PaymentStatusPartial,
	}
	actor := Actor{MemberID: uuid.New()}
	at := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	e := NewPaymentEvent(PaymentEventUpdated, p, actor, at)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, p.ID, e.PaymentID)
	assert.Equal(t, p.PeriodID, e.PeriodID)
	assert.Equal(t, PaymentEventUpdated, e.Kind)
	assert.Equal(t, PaymentStatusPartial, e.Status)
	assert.Equal(t, actor.MemberID, e.ActorID)
	assert.Equal(t, at, e.OccurredAt)

	p.Status = PaymentStatusPaid
	assert.Equal(t, PaymentStatusPartial, e.Status)
}
