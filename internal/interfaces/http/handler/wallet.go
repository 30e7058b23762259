package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/vicemeter/backend/internal/application/billing"
)

// WalletHandler exposes settlement previews, settles, and the dashboard.
type WalletHandler struct {
	BaseHandler
	walletService   *appbilling.WalletService
	defaultTZOffset int
}

// NewWalletHandler creates a new WalletHandler. defaultTZOffset is used
// when the client does not supply tz_offset_minutes.
func NewWalletHandler(walletService *appbilling.WalletService, defaultTZOffset int) *WalletHandler {
	return &WalletHandler{
		walletService:   walletService,
		defaultTZOffset: defaultTZOffset,
	}
}

// weekQuery builds the common week selector from request parameters
func (h *WalletHandler) weekQuery(c *gin.Context) (appbilling.WeekQuery, bool) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return appbilling.WeekQuery{}, false
	}
	offset, err := getTZOffsetMinutes(c, h.defaultTZOffset)
	if err != nil {
		h.BadRequest(c, err.Error())
		return appbilling.WeekQuery{}, false
	}
	return appbilling.WeekQuery{
		UserID:          userID,
		WeekEnd:         c.Query("week_end"),
		TZOffsetMinutes: offset,
	}, true
}

// Preview handles GET /wallet/preview
func (h *WalletHandler) Preview(c *gin.Context) {
	query, ok := h.weekQuery(c)
	if !ok {
		return
	}

	preview, err := h.walletService.PreviewWeek(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// SettleRequest is the optional body of POST /wallet/settle. A payment
// method here overrides the stored default for this settle only.
type SettleRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// Settle handles POST /wallet/settle
func (h *WalletHandler) Settle(c *gin.Context) {
	query, ok := h.weekQuery(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > 0 {
		var req SettleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid settle request: "+err.Error())
			return
		}
		query.PaymentMethodID = req.PaymentMethodID
	}

	result, err := h.walletService.SettleWeek(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PaymentSetupRequest is the body of POST /wallet/payment-method.
type PaymentSetupRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// SetupPayment handles POST /wallet/payment-method
func (h *WalletHandler) SetupPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req PaymentSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid payment setup request: "+err.Error())
		return
	}

	result, err := h.walletService.SetupPayment(c.Request.Context(), appbilling.PaymentSetupInput{
		UserID:          userID,
		Email:           req.Email,
		Name:            req.Name,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Dashboard handles GET /dashboard
func (h *WalletHandler) Dashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	offset, err := getTZOffsetMinutes(c, h.defaultTZOffset)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.walletService.Dashboard(c.Request.Context(), userID, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *WalletHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wallet/preview", h.Preview)
	rg.POST("/wallet/settle", h.Settle)
	rg.POST("/wallet/payment-method", h.SetupPayment)
	rg.GET("/dashboard", h.Dashboard)
}
