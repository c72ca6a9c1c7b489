package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestContributionPeriod_Label(t *testing.T) {
	p := &ContributionPeriod{Month: 3, Year: 2025}
	assert.Equal(t, "March 2025", p.Label())

	p = &ContributionPeriod{Month: 12, Year: 2024}
	assert.Equal(t, "December 2024", p.Label())
}

func TestContributionPeriod_Outstanding(t *testing.T) {
	p := &ContributionPeriod{TotalExpected: decimal.NewFromInt(1500), TotalCollected: decimal.NewFromInt(500)}
	assert.Equal(t, "1000", p.Outstanding().String())

	// Over-collection never shows negative outstanding
	p.TotalCollected = decimal.NewFromInt(1600)
	assert.True(t, p.Outstanding().IsZero())
}

func TestValidatePeriodMonth(t *testing.T) {
	assert.NoError(t, ValidatePeriodMonth(2025, 1))
	assert.NoError(t, ValidatePeriodMonth(2025, 12))
	assert.ErrorIs(t, ValidatePeriodMonth(2025, 0), ErrPeriodMonthInvalid)
	assert.ErrorIs(t, ValidatePeriodMonth(2025, 13), ErrPeriodMonthInvalid)
	assert.ErrorIs(t, ValidatePeriodMonth(1999, 5), ErrPeriodYearInvalid)
}

func TestMember_ExpectedFor(t *testing.T) {
	perMember := decimal.NewFromInt(500)
	m := &Member{}
	assert.True(t, m.ExpectedFor(perMember).Equal(perMember))

	override := decimal.NewFromInt(200)
	m.ExpectedAmount = &override
	assert.True(t, m.ExpectedFor(perMember).Equal(override))
}
