package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
	"github.com/devforge-studio/devforge-api/services"
)

// checkoutItem is the client's cart: what is being ordered and with which
// coupon. The same payload is sent to initiate and complete so the server
// re-prices it on every call instead of trusting a client-side amount.
type checkoutItem struct {
	Type         string              `json:"type" binding:"required,oneof=service project"`
	ServiceID    *uint               `json:"service_id"`
	ProjectID    *uint               `json:"project_id"`
	Requirements models.Requirements `json:"requirements"`
	OfferCode    string              `json:"offer_code"`
}

type pricedCheckout struct {
	base      int64
	discount  int64
	total     int64
	offerCode *string
}

// priceCheckoutItem resolves the listing and computes base, discount and
// total in cents. Returns a written-response signal on failure.
func priceCheckoutItem(c *gin.Context, item *checkoutItem) (*pricedCheckout, bool) {
	db := config.GetDB()
	priced := &pricedCheckout{}

	switch item.Type {
	case models.OrderTypeService:
		if item.ServiceID == nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "service_id is required for service orders")
			return nil, false
		}
		var svc models.Service
		if err := db.First(&svc, *item.ServiceID).Error; err != nil {
			respondError(c, notFoundStatus(err), "SERVICE_NOT_FOUND", "Service not found")
			return nil, false
		}
		if !svc.Active {
			respondError(c, http.StatusBadRequest, "SERVICE_INACTIVE", "This service is not currently offered")
			return nil, false
		}
		// Custom work is quoted by staff after review; nothing to pay yet.
		priced.base = 0
	case models.OrderTypeProject:
		if item.ProjectID == nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "project_id is required for project orders")
			return nil, false
		}
		var project models.Project
		if err := db.First(&project, *item.ProjectID).Error; err != nil {
			respondError(c, notFoundStatus(err), "PROJECT_NOT_FOUND", "Project not found")
			return nil, false
		}
		priced.base = project.Price
	}

	priced.total = priced.base

	if item.OfferCode != "" {
		if priced.base == 0 {
			respondError(c, http.StatusBadRequest, "INVALID_OFFER", "A coupon cannot be applied to an unpriced request")
			return nil, false
		}
		offer, err := services.NewOfferService(db).Validate(item.OfferCode)
		if err != nil {
			if errors.Is(err, services.ErrOfferNotFound) || errors.Is(err, services.ErrOfferExpired) {
				respondError(c, http.StatusBadRequest, "INVALID_OFFER", err.Error())
			} else {
				respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to validate offer")
			}
			return nil, false
		}
		priced.discount = services.DiscountAmount(priced.base, offer)
		priced.total = priced.base - priced.discount
		priced.offerCode = &offer.Code
	}

	return priced, true
}

// InitiateCheckout handles POST /api/v1/checkout/initiate - prices the cart
// and, when payment is due, creates a gateway order for the checkout widget.
// Nothing is persisted here; the order record is only written after the
// gateway confirms funds.
func InitiateCheckout(c *gin.Context) {
	if _, ok := loadRequestUser(c); !ok {
		return
	}

	var item checkoutItem
	if err := c.ShouldBindJSON(&item); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	priced, ok := priceCheckoutItem(c, &item)
	if !ok {
		return
	}

	if priced.total == 0 {
		respondOK(c, http.StatusOK, gin.H{
			"gateway_required": false,
			"payable_amount":   0,
			"discount_amount":  priced.discount,
		})
		return
	}

	gateway := services.GetPaymentGateway()
	receipt := services.NewReceipt()
	gwOrder, err := gateway.CreateGatewayOrder(c.Request.Context(), priced.total, receipt)
	if err != nil {
		if errors.Is(err, services.ErrGatewayConfig) {
			respondError(c, http.StatusServiceUnavailable, "CONFIG_ERROR",
				"Payment gateway credentials are not configured. Set PAYMENT_GATEWAY_KEY_ID and PAYMENT_GATEWAY_KEY_SECRET.")
			return
		}
		respondError(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway error", err.Error())
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"gateway_required": true,
		"gateway_order_id": gwOrder.ID,
		"amount":           gwOrder.Amount,
		"currency":         gwOrder.Currency,
		"key_id":           gateway.KeyID(),
		"receipt":          receipt,
		"payable_amount":   priced.total,
		"discount_amount":  priced.discount,
	})
}

// completeCheckoutRequest carries the cart plus, for paid orders, the charge
// proof returned by the checkout widget's success callback.
type completeCheckoutRequest struct {
	checkoutItem
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	Receipt          string `json:"receipt"`
}

// CompleteCheckout handles POST /api/v1/checkout/complete - verifies the
// charge (when one was due) and persists the order. Charge verification
// strictly precedes persistence; a write failure after a verified charge is
// the flagged critical path and is surfaced as a contact-support error,
// never retried.
func CompleteCheckout(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}

	var req completeCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	priced, ok := priceCheckoutItem(c, &req.checkoutItem)
	if !ok {
		return
	}

	var charge *services.VerifiedCharge
	if priced.total > 0 {
		if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
			respondError(c, http.StatusBadRequest, "PAYMENT_REQUIRED", "This order requires payment before it can be placed")
			return
		}
		gateway := services.GetPaymentGateway()
		if err := gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
			if errors.Is(err, services.ErrGatewayConfig) {
				respondError(c, http.StatusServiceUnavailable, "CONFIG_ERROR",
					"Payment gateway credentials are not configured. Set PAYMENT_GATEWAY_KEY_ID and PAYMENT_GATEWAY_KEY_SECRET.")
				return
			}
			respondError(c, http.StatusBadRequest, "SIGNATURE_INVALID", "Payment could not be verified")
			return
		}
		if !verifyChargedAmount(c, req.GatewayOrderID, priced.total) {
			return
		}
		charge = &services.VerifiedCharge{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Receipt:          req.Receipt,
		}
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.CreateOrder(user.ID, services.CreateOrderInput{
		Type:           req.Type,
		ServiceID:      req.ServiceID,
		ProjectID:      req.ProjectID,
		Requirements:   req.Requirements,
		TotalAmount:    priced.total,
		DiscountAmount: priced.discount,
		OfferCode:      priced.offerCode,
		Charge:         charge,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCriticalPersistence):
			respondError(c, http.StatusInternalServerError, "PAYMENT_RECORDED_ORDER_FAILED",
				fmt.Sprintf("Your payment was captured but the order could not be recorded. Do not retry payment; contact %s and quote receipt %s.",
					config.GetConfig().SupportEmail, req.Receipt))
		case errors.Is(err, services.ErrChargeRequired):
			respondError(c, http.StatusBadRequest, "PAYMENT_REQUIRED", "This order requires payment before it can be placed")
		case errors.Is(err, services.ErrDuplicateCharge):
			respondError(c, http.StatusConflict, "DUPLICATE_CHARGE", "This gateway payment has already been recorded")
		default:
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Could not create order", err.Error())
		}
		return
	}

	services.Dispatch(services.EventOrderCreated, order, user.Email)

	respondOK(c, http.StatusCreated, gin.H{
		"order":          order,
		"payable_amount": services.PayableAmount(order),
	})
}
