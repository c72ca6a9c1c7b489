package handler

import (
	"net/http"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// PeriodHandler handles contribution period HTTP requests
type PeriodHandler struct {
	periodService *service.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periodService *service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periodService: periodService}
}

// CreatePeriodRequest represents the create period request body
type CreatePeriodRequest struct {
	Year                   int     `json:"year" validate:"required,min=2000,max=2100"`
	Month                  int     `json:"month" validate:"required,min=1,max=12"`
	PerMemberAmount        string  `json:"perMemberAmount" validate:"required,money"`
	BeneficiaryID          *string `json:"beneficiaryId,omitempty" validate:"omitempty,uuid"`
	BeneficiaryBankName    *string `json:"beneficiaryBankName,omitempty" validate:"omitempty,max=255"`
	BeneficiaryBankAccount *string `json:"beneficiaryBankAccount,omitempty" validate:"omitempty,max=64"`
}

// CreatePeriod godoc
// @Summary Open a contribution period
// @Description Open the period for a month. The expected total is snapshotted from active members.
// @Tags periods
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path string true "Group ID"
// @Param request body CreatePeriodRequest true "Period"
// @Success 201 {object} PeriodResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /groups/{groupId}/periods [post]
func (h *PeriodHandler) CreatePeriod(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	groupID, ok, err := uuidParam(c, "groupId")
	if !ok {
		return err
	}
	if ok, err := sameGroup(c, member, groupID); !ok {
		return err
	}

	var req CreatePeriodRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	period, err := h.periodService.CreatePeriod(c.Request().Context(), actor, service.CreatePeriodInput{
		GroupID:                groupID,
		Year:                   req.Year,
		Month:                  req.Month,
		PerMemberAmount:        money(req.PerMemberAmount),
		BeneficiaryID:          optionalUUID(req.BeneficiaryID),
		BeneficiaryBankName:    req.BeneficiaryBankName,
		BeneficiaryBankAccount: req.BeneficiaryBankAccount,
	})
	if err != nil {
		return handleServiceError(c, err, "create period")
	}

	log.Info().
		Str("group_id", groupID.String()).
		Str("period_id", period.ID.String()).
		Str("label", period.Label()).
		Msg("Contribution period created")

	return c.JSON(http.StatusCreated, toPeriodResponse(period))
}

// ListPeriods godoc
// @Summary List a group's periods
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param groupId path string true "Group ID"
// @Success 200 {array} PeriodResponse
// @Router /groups/{groupId}/periods [get]
func (h *PeriodHandler) ListPeriods(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	groupID, ok, err := uuidParam(c, "groupId")
	if !ok {
		return err
	}
	if ok, err := sameGroup(c, member, groupID); !ok {
		return err
	}

	periods, err := h.periodService.ListPeriodsByGroup(c.Request().Context(), groupID)
	if err != nil {
		return handleServiceError(c, err, "list periods")
	}
	return c.JSON(http.StatusOK, toPeriodResponses(periods))
}

// GetPeriodSummary godoc
// @Summary Get a period with its payments
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Success 200 {object} PeriodSummaryResponse
// @Failure 404 {object} ProblemDetails
// @Router /periods/{periodId} [get]
func (h *PeriodHandler) GetPeriodSummary(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	periodID, ok, err := uuidParam(c, "periodId")
	if !ok {
		return err
	}

	summary, err := h.periodService.GetPeriodSummary(c.Request().Context(), periodID)
	if err != nil {
		return handleServiceError(c, err, "get period")
	}
	if ok, err := sameGroup(c, member, summary.Period.GroupID); !ok {
		return err
	}

	paid := 0
	for _, p := range summary.Payments {
		if p.CountsTowardCollected() {
			paid++
		}
	}

	return c.JSON(http.StatusOK, PeriodSummaryResponse{
		Period:    toPeriodResponse(summary.Period),
		Payments:  toPaymentResponses(summary.Payments),
		PaidCount: paid,
	})
}

// RecomputeCollected godoc
// @Summary Recompute a period's collected total
// @Description Re-derives total collected from paid payments. Idempotent.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Success 200 {object} PeriodResponse
// @Router /periods/{periodId}/recompute [post]
func (h *PeriodHandler) RecomputeCollected(c echo.Context) error {
	return h.periodAction(c, "recompute period", func(_ domain.Actor, id uuid.UUID) (*domain.ContributionPeriod, error) {
		return h.periodService.RecomputeCollected(c.Request().Context(), id)
	})
}

// RecalculateExpected godoc
// @Summary Refresh a period's expected total
// @Description Re-snapshots the expected total from current active members. Rejected once finalized.
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Success 200 {object} PeriodResponse
// @Failure 423 {object} ProblemDetails
// @Router /periods/{periodId}/recalculate-expected [post]
func (h *PeriodHandler) RecalculateExpected(c echo.Context) error {
	return h.periodAction(c, "recalculate expected total", func(actor domain.Actor, id uuid.UUID) (*domain.ContributionPeriod, error) {
		return h.periodService.RecalculateExpected(c.Request().Context(), actor, id)
	})
}

// FinalizePeriod godoc
// @Summary Finalize a period
// @Description Locks the period against further payment mutations
// @Tags periods
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Success 200 {object} PeriodResponse
// @Failure 423 {object} ProblemDetails
// @Router /periods/{periodId}/finalize [post]
func (h *PeriodHandler) FinalizePeriod(c echo.Context) error {
	return h.periodAction(c, "finalize period", func(actor domain.Actor, id uuid.UUID) (*domain.ContributionPeriod, error) {
		return h.periodService.FinalizePeriod(c.Request().Context(), actor, id)
	})
}

// periodAction runs an admin action against a period of the caller's group
func (h *PeriodHandler) periodAction(c echo.Context, op string, fn func(domain.Actor, uuid.UUID) (*domain.ContributionPeriod, error)) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	periodID, ok, err := uuidParam(c, "periodId")
	if !ok {
		return err
	}

	period, err := h.periodService.GetPeriod(c.Request().Context(), periodID)
	if err != nil {
		return handleServiceError(c, err, op)
	}
	if ok, err := sameGroup(c, member, period.GroupID); !ok {
		return err
	}

	period, err = fn(actor, periodID)
	if err != nil {
		return handleServiceError(c, err, op)
	}
	return c.JSON(http.StatusOK, toPeriodResponse(period))
}
