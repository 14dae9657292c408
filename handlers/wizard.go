package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"wizard-backend/common"
	"wizard-backend/model"
	"wizard-backend/services"
	"wizard-backend/wizard"

	"github.com/gin-gonic/gin"
)

// WizardHandler exposes the wizard orchestrator to the host page.
type WizardHandler struct {
	logger *slog.Logger
	cfg    *common.Config
	orch   *wizard.Orchestrator
}

// NewWizardHandler creates a new wizard handler.
func NewWizardHandler(cfg *common.Config, orch *wizard.Orchestrator) *WizardHandler {
	return &WizardHandler{
		logger: slog.With("handler", "WizardHandler"),
		cfg:    cfg,
		orch:   orch,
	}
}

// RegisterRoutes registers the wizard API surface.
func (h *WizardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.StartSession)
	r.GET("/sessions/:id/state", h.GetState)
	r.POST("/sessions/:id/zip", h.VerifyZip)
	r.POST("/sessions/:id/filter", h.ApplyFilter)
	r.POST("/sessions/:id/selection", h.ToggleSelection)
	r.POST("/sessions/:id/navigate", h.Navigate)
	r.PUT("/sessions/:id/quantities", h.SetQuantity)
	r.GET("/sessions/:id/plans", h.TermPlans)
	r.POST("/sessions/:id/order", h.SubmitOrder)
	r.GET("/picklists/:field", h.Picklists)
	r.GET("/page-size", h.PageSize)
}

// respondError maps orchestrator errors onto the wire: validation failures
// block locally with 400, gateway rejections surface their user message
// with 502, anything else is a 500.
func (h *WizardHandler) respondError(c *gin.Context, err error) {
	var validationErr *wizard.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message, "hasValidationError": true})
		return
	}

	var gatewayErr *services.GatewayError
	if errors.As(err, &gatewayErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": gatewayErr.Message})
		return
	}

	h.logger.Error("Unexpected wizard error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
}

type startSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type startSessionResponse struct {
	SessionID    string `json:"sessionId"`
	FreshSession bool   `json:"freshSession"`
}

// StartSession opens (or re-attaches) a wizard session. The session fence
// runs here like on every other entry point: a fresh session starts from a
// clean slate.
func (h *WizardHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = common.RandomID()
	}
	sessionID = common.SafeString(sessionID)

	fresh := h.orch.EnsureSession(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, startSessionResponse{SessionID: sessionID, FreshSession: fresh})
}

func (h *WizardHandler) sessionID(c *gin.Context) string {
	sessionID := common.SafeString(c.Param("id"))
	h.orch.EnsureSession(c.Request.Context(), sessionID)
	return sessionID
}

// GetState returns the persisted wizard snapshot for the session.
func (h *WizardHandler) GetState(c *gin.Context) {
	sessionID := h.sessionID(c)
	c.JSON(http.StatusOK, h.orch.State(c.Request.Context(), sessionID))
}

type verifyZipRequest struct {
	ZipCode string `json:"zipCode"`
}

// VerifyZip handles the verify-click on the zip code screen.
func (h *WizardHandler) VerifyZip(c *gin.Context) {
	sessionID := h.sessionID(c)

	var req verifyZipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.orch.VerifyZip(c.Request.Context(), sessionID, req.ZipCode)
	if result.HasValidationError {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApplyFilter runs a fresh filter application and moves the wizard to the
// table screen.
func (h *WizardHandler) ApplyFilter(c *gin.Context) {
	sessionID := h.sessionID(c)

	var criteria model.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := h.orch.ApplyFilter(c.Request.Context(), sessionID, criteria)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"view": model.ViewTable, "products": products})
}

type toggleSelectionRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// ToggleSelection flips one product in the table selection set.
func (h *WizardHandler) ToggleSelection(c *gin.Context) {
	sessionID := h.sessionID(c)

	var req toggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := h.orch.ToggleSelection(c.Request.Context(), sessionID, req.ProductID)
	c.JSON(http.StatusOK, gin.H{"selectedIds": ids})
}

// Navigate applies a navigation event raised by the active screen.
func (h *WizardHandler) Navigate(c *gin.Context) {
	sessionID := h.sessionID(c)

	var ev model.NavigationEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orch.Navigate(c.Request.Context(), sessionID, ev)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setQuantityRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// SetQuantity updates a detail-screen quantity and returns the recomputed
// pricing block.
func (h *WizardHandler) SetQuantity(c *gin.Context) {
	sessionID := h.sessionID(c)

	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.orch.SetQuantity(c.Request.Context(), sessionID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TermPlans returns the terms screen's plan options for the current total.
func (h *WizardHandler) TermPlans(c *gin.Context) {
	sessionID := h.sessionID(c)

	plans, err := h.orch.TermPlans(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// SubmitOrder validates the contact form and submits the order.
func (h *WizardHandler) SubmitOrder(c *gin.Context) {
	sessionID := h.sessionID(c)

	var form model.OrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID, err := h.orch.SubmitOrder(c.Request.Context(), sessionID, form)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "message": "Order created successfully"})
}

// Picklists proxies filter/term option metadata from the catalog service.
func (h *WizardHandler) Picklists(c *gin.Context) {
	values, err := h.orch.PicklistValues(c.Request.Context(), c.Param("field"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// PageSize proxies the catalog's total product count.
func (h *WizardHandler) PageSize(c *gin.Context) {
	count, err := h.orch.PageSize(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
