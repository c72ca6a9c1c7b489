package handler

import (
	"net/http"
	"strings"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	periodService  *service.PeriodService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, periodService *service.PeriodService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, periodService: periodService}
}

// RecordPaymentRequest represents the record payment request body
type RecordPaymentRequest struct {
	MemberID string `json:"memberId" validate:"required,uuid"`
	Amount   string `json:"amount" validate:"required,money"`
	Status   string `json:"status,omitempty"` // defaults to paid
}

// UpdatePaymentStatusRequest represents the status change request body
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// EditPaymentRequest represents the edit payment request body
type EditPaymentRequest struct {
	MemberID string `json:"memberId" validate:"required,uuid"`
	Amount   string `json:"amount" validate:"required,money"`
	Status   string `json:"status" validate:"required"`
}

// DeletePaymentResponse carries the recomputed period after a delete
type DeletePaymentResponse struct {
	Period PeriodResponse `json:"period"`
}

// RecordPayment godoc
// @Summary Record a payment
// @Description Adds a member's payment to the period and recomputes its collected total
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Param request body RecordPaymentRequest true "Payment"
// @Success 201 {object} PaymentResultResponse
// @Failure 400 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Router /periods/{periodId}/payments [post]
func (h *PaymentHandler) RecordPayment(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	periodID, ok, err := uuidParam(c, "periodId")
	if !ok {
		return err
	}
	if ok, err := h.periodInGroup(c, member, periodID, "record payment"); !ok {
		return err
	}

	var req RecordPaymentRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	status := domain.PaymentStatusPaid
	if strings.TrimSpace(req.Status) != "" {
		if status, err = domain.ParsePaymentStatus(req.Status); err != nil {
			return handleServiceError(c, err, "record payment")
		}
	}

	result, err := h.paymentService.RecordPayment(c.Request().Context(), actor, service.RecordPaymentInput{
		PeriodID: periodID,
		MemberID: uuid.MustParse(req.MemberID),
		Amount:   money(req.Amount),
		Status:   status,
	})
	if err != nil {
		return handleServiceError(c, err, "record payment")
	}
	return c.JSON(http.StatusCreated, toPaymentResult(result))
}

// ListPayments godoc
// @Summary List a period's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param periodId path string true "Period ID"
// @Success 200 {array} PaymentResponse
// @Router /periods/{periodId}/payments [get]
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	periodID, ok, err := uuidParam(c, "periodId")
	if !ok {
		return err
	}
	if ok, err := h.periodInGroup(c, member, periodID, "list payments"); !ok {
		return err
	}

	payments, err := h.paymentService.ListPaymentsByPeriod(c.Request().Context(), periodID)
	if err != nil {
		return handleServiceError(c, err, "list payments")
	}
	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// UpdatePaymentStatus godoc
// @Summary Change a payment's status
// @Description Any transition is allowed, including paid back to pending
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body UpdatePaymentStatusRequest true "Status"
// @Success 200 {object} PaymentResultResponse
// @Failure 423 {object} ProblemDetails
// @Router /payments/{paymentId}/status [patch]
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := h.paymentInGroup(c, member, "update payment status")
	if !ok {
		return err
	}

	var req UpdatePaymentStatusRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	status, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		return handleServiceError(c, err, "update payment status")
	}

	result, err := h.paymentService.UpdatePaymentStatus(c.Request().Context(), actor, paymentID, status)
	if err != nil {
		return handleServiceError(c, err, "update payment status")
	}
	return c.JSON(http.StatusOK, toPaymentResult(result))
}

// EditPayment godoc
// @Summary Edit a payment
// @Description Overwrites member, amount and status. The payment date is reset to now.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body EditPaymentRequest true "Payment"
// @Success 200 {object} PaymentResultResponse
// @Failure 423 {object} ProblemDetails
// @Router /payments/{paymentId} [put]
func (h *PaymentHandler) EditPayment(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := h.paymentInGroup(c, member, "edit payment")
	if !ok {
		return err
	}

	var req EditPaymentRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	status, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		return handleServiceError(c, err, "edit payment")
	}

	result, err := h.paymentService.EditPayment(c.Request().Context(), actor, paymentID, service.EditPaymentInput{
		MemberID: uuid.MustParse(req.MemberID),
		Amount:   money(req.Amount),
		Status:   status,
	})
	if err != nil {
		return handleServiceError(c, err, "edit payment")
	}
	return c.JSON(http.StatusOK, toPaymentResult(result))
}

// DeletePayment godoc
// @Summary Delete a payment
// @Description Requires confirm=true. Returns the recomputed period.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param confirm query bool true "Confirm deletion"
// @Success 200 {object} DeletePaymentResponse
// @Failure 423 {object} ProblemDetails
// @Router /payments/{paymentId} [delete]
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := h.paymentInGroup(c, member, "delete payment")
	if !ok {
		return err
	}
	if !confirmed(c) {
		return NewValidationError(c, "Deletion must be confirmed", []ValidationError{
			{Field: "confirm", Message: "Must be true"},
		})
	}

	period, err := h.paymentService.DeletePayment(c.Request().Context(), actor, paymentID)
	if err != nil {
		return handleServiceError(c, err, "delete payment")
	}
	return c.JSON(http.StatusOK, DeletePaymentResponse{Period: toPeriodResponse(period)})
}

// ListPaymentEvents godoc
// @Summary List a payment's change log
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Success 200 {array} PaymentEventResponse
// @Router /payments/{paymentId}/events [get]
func (h *PaymentHandler) ListPaymentEvents(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := uuidParam(c, "paymentId")
	if !ok {
		return err
	}

	// Deleted payments keep their log, so the group is taken from the events
	events, err := h.paymentService.ListPaymentEvents(c.Request().Context(), paymentID)
	if err != nil {
		return handleServiceError(c, err, "list payment events")
	}
	if ok, err := h.periodInGroup(c, member, events[0].PeriodID, "list payment events"); !ok {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentEventResponses(events))
}

func (h *PaymentHandler) periodInGroup(c echo.Context, member *domain.Member, periodID uuid.UUID, op string) (bool, error) {
	period, err := h.periodService.GetPeriod(c.Request().Context(), periodID)
	if err != nil {
		return false, handleServiceError(c, err, op)
	}
	return sameGroup(c, member, period.GroupID)
}

// paymentInGroup resolves the paymentId parameter and checks the payment's
// period belongs to the caller's group
func (h *PaymentHandler) paymentInGroup(c echo.Context, member *domain.Member, op string) (uuid.UUID, bool, error) {
	paymentID, ok, err := uuidParam(c, "paymentId")
	if !ok {
		return uuid.Nil, false, err
	}
	payment, err := h.paymentService.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return uuid.Nil, false, handleServiceError(c, err, op)
	}
	if ok, err := h.periodInGroup(c, member, payment.PeriodID, op); !ok {
		return uuid.Nil, false, err
	}
	return paymentID, true, nil
}

func toPaymentResult(r *service.PaymentResult) PaymentResultResponse {
	return PaymentResultResponse{
		Payment: toPaymentResponse(r.Payment),
		Period:  toPeriodResponse(r.Period),
	}
}
