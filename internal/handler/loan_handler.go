package handler

import (
	"net/http"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// IssueLoanRequest represents the issue loan request body
type IssueLoanRequest struct {
	MemberID         string  `json:"memberId" validate:"required,uuid"`
	Principal        string  `json:"principal" validate:"required,money"`
	MonthlyRepayment *string `json:"monthlyRepayment,omitempty" validate:"omitempty,money"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// RecordRepaymentRequest represents the repayment request body
type RecordRepaymentRequest struct {
	Amount        string  `json:"amount" validate:"required,money"`
	RepaymentType string  `json:"repaymentType,omitempty"` // defaults to manual
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// IssueLoan godoc
// @Summary Issue a loan to a member
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path string true "Group ID"
// @Param request body IssueLoanRequest true "Loan"
// @Success 201 {object} LoanResponse
// @Failure 400 {object} ProblemDetails
// @Router /groups/{groupId}/loans [post]
func (h *LoanHandler) IssueLoan(c echo.Context) error {
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

	var req IssueLoanRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	var monthly *decimal.Decimal
	if req.MonthlyRepayment != nil {
		m := money(*req.MonthlyRepayment)
		monthly = &m
	}

	loan, err := h.loanService.IssueLoan(c.Request().Context(), actor, service.IssueLoanInput{
		GroupID:          groupID,
		MemberID:         uuid.MustParse(req.MemberID),
		Principal:        money(req.Principal),
		MonthlyRepayment: monthly,
		Notes:            req.Notes,
	})
	if err != nil {
		return handleServiceError(c, err, "issue loan")
	}
	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// ListLoans godoc
// @Summary List a group's loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param groupId path string true "Group ID"
// @Success 200 {array} LoanResponse
// @Router /groups/{groupId}/loans [get]
func (h *LoanHandler) ListLoans(c echo.Context) error {
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

	loans, err := h.loanService.ListLoansByGroup(c.Request().Context(), groupID)
	if err != nil {
		return handleServiceError(c, err, "list loans")
	}
	return c.JSON(http.StatusOK, toLoanResponses(loans))
}

// ListMyLoans godoc
// @Summary List the caller's own loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} LoanResponse
// @Router /me/loans [get]
func (h *LoanHandler) ListMyLoans(c echo.Context) error {
	actor, _, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	loans, err := h.loanService.ListLoansByMember(c.Request().Context(), actor.MemberID)
	if err != nil {
		return handleServiceError(c, err, "list loans")
	}
	return c.JSON(http.StatusOK, toLoanResponses(loans))
}

// GetLoan godoc
// @Summary Get a loan with its repayments
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} LoanDetailResponse
// @Failure 404 {object} ProblemDetails
// @Router /loans/{loanId} [get]
func (h *LoanHandler) GetLoan(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loan, ok, err := h.loanInGroup(c, member, "get loan")
	if !ok {
		return err
	}

	repayments, err := h.loanService.ListRepayments(c.Request().Context(), loan.ID)
	if err != nil {
		return handleServiceError(c, err, "get loan")
	}

	return c.JSON(http.StatusOK, LoanDetailResponse{
		Loan:       toLoanResponse(loan),
		Repayments: toRepaymentResponses(repayments),
	})
}

// RecordRepayment godoc
// @Summary Record a loan repayment
// @Description Reduces the outstanding balance, clamping at zero. Rejected once the loan is repaid.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param request body RecordRepaymentRequest true "Repayment"
// @Success 201 {object} RepaymentResultResponse
// @Failure 400 {object} ProblemDetails
// @Router /loans/{loanId}/repayments [post]
func (h *LoanHandler) RecordRepayment(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loan, ok, err := h.loanInGroup(c, member, "record repayment")
	if !ok {
		return err
	}

	var req RecordRepaymentRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	repaymentType, err := domain.ParseRepaymentType(req.RepaymentType)
	if err != nil {
		return handleServiceError(c, err, "record repayment")
	}

	result, err := h.loanService.RecordRepayment(c.Request().Context(), actor, service.RecordRepaymentInput{
		LoanID:        loan.ID,
		Amount:        money(req.Amount),
		RepaymentType: repaymentType,
		Notes:         req.Notes,
	})
	if err != nil {
		return handleServiceError(c, err, "record repayment")
	}

	return c.JSON(http.StatusCreated, RepaymentResultResponse{
		Loan:      toLoanResponse(result.Loan),
		Repayment: toRepaymentResponse(result.Repayment),
	})
}

// ReconcileLoan godoc
// @Summary Compare a loan's stored balance with its repayment history
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} ReconciliationResponse
// @Router /loans/{loanId}/reconcile [get]
func (h *LoanHandler) ReconcileLoan(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loan, ok, err := h.loanInGroup(c, member, "reconcile loan")
	if !ok {
		return err
	}

	rec, err := h.loanService.ReconcileLoan(c.Request().Context(), loan.ID)
	if err != nil {
		return handleServiceError(c, err, "reconcile loan")
	}

	return c.JSON(http.StatusOK, ReconciliationResponse{
		LoanID:          rec.LoanID.String(),
		StoredBalance:   formatMoney(rec.StoredBalance),
		DerivedBalance:  formatMoney(rec.DerivedBalance),
		TotalRepayments: formatMoney(rec.TotalRepayments),
		Consistent:      rec.Consistent,
	})
}

// DeleteLoan godoc
// @Summary Archive a loan
// @Description Soft delete. Repayment history is kept. Requires confirm=true.
// @Tags loans
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param confirm query bool true "Confirm deletion"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Router /loans/{loanId} [delete]
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loan, ok, err := h.loanInGroup(c, member, "delete loan")
	if !ok {
		return err
	}
	if !confirmed(c) {
		return NewValidationError(c, "Deletion must be confirmed", []ValidationError{
			{Field: "confirm", Message: "Must be true"},
		})
	}

	if err := h.loanService.DeleteLoan(c.Request().Context(), actor, loan.ID); err != nil {
		return handleServiceError(c, err, "delete loan")
	}

	return c.NoContent(http.StatusNoContent)
}

// loanInGroup resolves the loanId parameter to a loan of the caller's group
func (h *LoanHandler) loanInGroup(c echo.Context, member *domain.Member, op string) (*domain.Loan, bool, error) {
	loanID, ok, err := uuidParam(c, "loanId")
	if !ok {
		return nil, false, err
	}
	loan, err := h.loanService.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return nil, false, handleServiceError(c, err, op)
	}
	if ok, err := sameGroup(c, member, loan.GroupID); !ok {
		return nil, false, err
	}
	return loan, true, nil
}
