package handler

import (
	"github.com/dafibh/kitty/kitty-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Period       *PeriodHandler
	Payment      *PaymentHandler
	Receipt      *ReceiptHandler
	Loan         *LoanHandler
	Notification *NotificationHandler
	WebSocket    *WebSocketHandler
}

// RegisterRoutes sets up all API routes. Reads are open to every member of
// the owning group; mutations require the admin role.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	if rateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(rateLimiter))
	}
	admin := middleware.RequireAdmin()

	// Group-scoped routes
	groups := api.Group("/groups/:groupId")
	groups.POST("/periods", h.Period.CreatePeriod, admin)
	groups.GET("/periods", h.Period.ListPeriods)
	groups.POST("/loans", h.Loan.IssueLoan, admin)
	groups.GET("/loans", h.Loan.ListLoans)

	// Contribution periods
	periods := api.Group("/periods/:periodId")
	periods.GET("", h.Period.GetPeriodSummary)
	periods.POST("/recompute", h.Period.RecomputeCollected, admin)
	periods.POST("/recalculate-expected", h.Period.RecalculateExpected, admin)
	periods.POST("/finalize", h.Period.FinalizePeriod, admin)
	periods.POST("/payments", h.Payment.RecordPayment, admin)
	periods.GET("/payments", h.Payment.ListPayments)

	// Payments
	payments := api.Group("/payments/:paymentId")
	payments.PATCH("/status", h.Payment.UpdatePaymentStatus, admin)
	payments.PUT("", h.Payment.EditPayment, admin)
	payments.DELETE("", h.Payment.DeletePayment, admin)
	payments.GET("/events", h.Payment.ListPaymentEvents)
	payments.POST("/receipt", h.Receipt.UploadReceipt, admin)
	payments.GET("/receipt", h.Receipt.GetReceipt)

	// Loans
	loans := api.Group("/loans/:loanId")
	loans.GET("", h.Loan.GetLoan)
	loans.POST("/repayments", h.Loan.RecordRepayment, admin)
	loans.GET("/reconcile", h.Loan.ReconcileLoan, admin)
	loans.DELETE("", h.Loan.DeleteLoan, admin)

	// Caller's own inbox and loans
	me := api.Group("/me")
	me.GET("/notifications", h.Notification.ListNotifications)
	me.PATCH("/notifications/:id/read", h.Notification.MarkRead)
	me.POST("/notifications/read-all", h.Notification.MarkAllRead)
	me.GET("/loans", h.Loan.ListMyLoans)

	// WebSocket authenticates with the token query parameter
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}
}
