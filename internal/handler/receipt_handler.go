package handler

import (
	"io"
	"net/http"

	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReceiptHandler handles proof-of-payment uploads
type ReceiptHandler struct {
	receiptService *service.ReceiptService
	payments       *PaymentHandler
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService, payments *PaymentHandler) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, payments: payments}
}

// ReceiptResponse carries presigned links to a payment's receipt
type ReceiptResponse struct {
	PaymentID    string `json:"paymentId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DisplayURL   string `json:"displayUrl"`
	ExpiresAt    string `json:"expiresAt"`
}

// UploadReceipt godoc
// @Summary Attach a receipt image to a payment
// @Description JPEG or PNG up to 5MB. Replaces any previous receipt.
// @Tags payments
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param file formData file true "Receipt image"
// @Success 201 {object} ReceiptResponse
// @Failure 400 {object} ProblemDetails
// @Failure 423 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /payments/{paymentId}/receipt [post]
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	actor, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	// Don't touch the upload when storage is not configured
	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	paymentID, ok, err := h.payments.paymentInGroup(c, member, "upload receipt")
	if !ok {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxReceiptSize {
		return handleServiceError(c, service.ErrReceiptTooLarge, "upload receipt")
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	payment, err := h.receiptService.UploadReceipt(c.Request().Context(), actor, paymentID, data, file.Filename)
	if err != nil {
		return handleServiceError(c, err, "upload receipt")
	}

	urls, err := h.receiptService.ReceiptURLs(c.Request().Context(), payment)
	if err != nil {
		return handleServiceError(c, err, "sign receipt urls")
	}

	log.Info().
		Str("payment_id", payment.ID.String()).
		Str("actor_id", actor.MemberID.String()).
		Msg("Receipt uploaded")

	return c.JSON(http.StatusCreated, ReceiptResponse{
		PaymentID:    payment.ID.String(),
		ThumbnailURL: urls.ThumbnailURL,
		DisplayURL:   urls.DisplayURL,
		ExpiresAt:    formatTime(urls.ExpiresAt),
	})
}

// GetReceipt godoc
// @Summary Get presigned links to a payment's receipt
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} ReceiptResponse
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /payments/{paymentId}/receipt [get]
func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	_, member, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	paymentID, ok, err := h.payments.paymentInGroup(c, member, "get receipt")
	if !ok {
		return err
	}
	payment, err := h.payments.paymentService.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return handleServiceError(c, err, "get receipt")
	}

	urls, err := h.receiptService.ReceiptURLs(c.Request().Context(), payment)
	if err != nil {
		return handleServiceError(c, err, "sign receipt urls")
	}
	if urls == nil {
		return NewNotFoundError(c, "payment has no receipt")
	}

	return c.JSON(http.StatusOK, ReceiptResponse{
		PaymentID:    payment.ID.String(),
		ThumbnailURL: urls.ThumbnailURL,
		DisplayURL:   urls.DisplayURL,
		ExpiresAt:    formatTime(urls.ExpiresAt),
	})
}
