package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
	"github.com/devforge-studio/devforge-api/services"
)

// IssueQuoteRequest represents the request body for quoting an order.
// Amounts are cents of the base currency.
type IssueQuoteRequest struct {
	TotalAmount   int64 `json:"total_amount" binding:"required,gt=0"`
	DepositAmount int64 `json:"deposit_amount" binding:"gte=0"`
}

// IssueQuote handles PUT /api/v1/staff/orders/:id/quote - sets the quoted
// total and deposit and activates payment gating
func IssueQuote(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req IssueQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}
	if req.DepositAmount > req.TotalAmount {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "deposit_amount cannot exceed total_amount")
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.IssueQuote(orderID, req.TotalAmount, req.DepositAmount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		case errors.Is(err, services.ErrTerminalStatus):
			respondError(c, http.StatusConflict, "TERMINAL_STATUS", "Completed or cancelled orders cannot be quoted")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to issue quote")
		}
		return
	}

	services.Dispatch(services.EventStatusChanged, order, order.Client.Email)
	respondOK(c, http.StatusOK, order)
}

// ChangeStatusRequest represents the request body for a status change
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeStatus handles PUT /api/v1/staff/orders/:id/status - staff may move
// status freely; completed and cancelled are terminal. Payment gating
// derives from status, so this immediately changes what the client may pay.
func ChangeStatus(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.ChangeStatus(orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		case errors.Is(err, services.ErrInvalidStatus):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown order status")
		case errors.Is(err, services.ErrTerminalStatus):
			respondError(c, http.StatusConflict, "TERMINAL_STATUS", "Completed or cancelled orders cannot change status")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to change status")
		}
		return
	}

	services.Dispatch(services.EventStatusChanged, order, order.Client.Email)
	respondOK(c, http.StatusOK, order)
}

// AttachDeliverableRequest represents the request body for a deliverable
type AttachDeliverableRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// AttachDeliverable handles POST /api/v1/staff/orders/:id/deliverables -
// appends an uploaded file URL to the order
func AttachDeliverable(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AttachDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.AttachDeliverable(orderID, req.URL)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to attach deliverable")
		}
		return
	}

	respondOK(c, http.StatusOK, order)
}

// ReconcileOrder handles POST /api/v1/staff/orders/:id/reconcile - the
// operational repair tool: recomputes amount_paid from the payment ledger
// and corrects any drift left by a failed aggregate update
func ReconcileOrder(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	previous, corrected, err := orderSvc.Reconcile(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to reconcile order")
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"previous_amount_paid":  previous,
		"corrected_amount_paid": corrected,
		"drift_repaired":        previous != corrected,
	})
}

// ListOrderPayments handles GET /api/v1/staff/orders/:id/payments - the
// order's append-only ledger, oldest first
func ListOrderPayments(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	if _, err := orderSvc.GetOrder(orderID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		}
		return
	}

	payments, err := orderSvc.ListPayments(orderID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch payments")
		return
	}
	respondOK(c, http.StatusOK, payments)
}

// CreateOfferRequest represents the request body for creating a coupon
type CreateOfferRequest struct {
	Code            string `json:"code" binding:"required"`
	DiscountPercent int    `json:"discount_percent" binding:"required,min=1,max=100"`
	ValidUntil      string `json:"valid_until"` // YYYY-MM-DD, optional
}

// CreateOffer handles POST /api/v1/staff/offers
func CreateOffer(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}

	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	var validUntil *time.Time
	if req.ValidUntil != "" {
		parsed, err := time.Parse("2006-01-02", req.ValidUntil)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "valid_until must be a YYYY-MM-DD date")
			return
		}
		validUntil = &parsed
	}

	offerSvc := services.NewOfferService(config.GetDB())
	offer, err := offerSvc.Create(req.Code, req.DiscountPercent, validUntil)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOfferExists):
			respondError(c, http.StatusConflict, "OFFER_EXISTS", "An offer with this code already exists")
		case errors.Is(err, services.ErrInvalidDiscount):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Discount percent must be between 1 and 100")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create offer")
		}
		return
	}

	respondOK(c, http.StatusCreated, offer)
}

// DeleteOffer handles DELETE /api/v1/staff/offers/:code
func DeleteOffer(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}

	offerSvc := services.NewOfferService(config.GetDB())
	if err := offerSvc.Delete(c.Param("code")); err != nil {
		if errors.Is(err, services.ErrOfferNotFound) {
			respondError(c, http.StatusNotFound, "OFFER_NOT_FOUND", "Offer not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete offer")
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

// CreateProjectRequest represents the request body for a marketplace listing
type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"gte=0"` // cents; 0 means free
	FileURL     string `json:"file_url" binding:"required,url"`
}

// CreateProject handles POST /api/v1/staff/projects
func CreateProject(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	project := models.Project{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		FileURL:     req.FileURL,
	}
	if err := config.GetDB().Create(&project).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create project")
		return
	}

	respondOK(c, http.StatusCreated, project)
}

// DeleteProject handles DELETE /api/v1/staff/projects/:id - listings are
// hard-deletable only while nothing has been purchased
func DeleteProject(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		respondError(c, notFoundStatus(err), "PROJECT_NOT_FOUND", "Project not found")
		return
	}
	if project.Purchases > 0 {
		respondError(c, http.StatusConflict, "PROJECT_PURCHASED", "A purchased listing cannot be deleted")
		return
	}

	if err := db.Delete(&project).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete project")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

// CreateServiceRequest represents the request body for a catalog service
type CreateServiceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateService handles POST /api/v1/staff/services
func CreateService(c *gin.Context) {
	if _, ok := loadStaffUser(c); !ok {
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	service := models.Service{
		Title:       req.Title,
		Description: req.Description,
		Active:      true,
	}
	if err := config.GetDB().Create(&service).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service")
		return
	}

	respondOK(c, http.StatusCreated, service)
}
