package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appmetering "github.com/vicemeter/backend/internal/application/metering"
	"github.com/vicemeter/backend/internal/domain/metering"
)

// ConsentHandler records billing consent snapshots.
type ConsentHandler struct {
	BaseHandler
	consentService *appmetering.ConsentService
}

// NewConsentHandler creates a new ConsentHandler
func NewConsentHandler(consentService *appmetering.ConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

// ConsentRequest is the body of POST /consent. Grace accepts either an
// object keyed by category or a bare number applied to every category, for
// clients predating per-category schedules.
type ConsentRequest struct {
	UserID          string                                `json:"user_id" binding:"required"`
	Grace           metering.GraceSchedule                `json:"grace_minutes"`
	Rates           map[metering.Category]decimal.Decimal `json:"rates"`
	CategoriesOn    map[metering.Category]bool            `json:"categories_on"`
	TOSHash         string                                `json:"tos_hash"`
	PaymentMethodID string                                `json:"payment_method_id"`
}

// ConsentResponse echoes the stored snapshot plus the rules it resolves to
type ConsentResponse struct {
	Snapshot *metering.ConsentSnapshot `json:"snapshot"`
	Rules    metering.Rules            `json:"rules"`
}

// Record handles POST /consent
func (h *ConsentHandler) Record(c *gin.Context) {
	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid consent payload: "+err.Error())
		return
	}

	snapshot, err := h.consentService.RecordConsent(c.Request.Context(), appmetering.RecordConsentInput{
		UserID:          req.UserID,
		Grace:           req.Grace,
		Rates:           req.Rates,
		CategoriesOn:    req.CategoriesOn,
		TOSHash:         req.TOSHash,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ConsentResponse{
		Snapshot: snapshot,
		Rules:    metering.ResolveRules(snapshot),
	})
}

// GetRules handles GET /consent/rules
func (h *ConsentHandler) GetRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rules, err := h.consentService.EffectiveRules(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ConsentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/consent", h.Record)
	rg.GET("/consent/rules", h.GetRules)
}
