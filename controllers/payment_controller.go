package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
	"github.com/devforge-studio/devforge-api/services"
)

// loadOwnOrder loads the order and enforces that the caller is its client.
// Deposit and balance payments are made by the owning client only.
func loadOwnOrder(c *gin.Context, user *models.User) (*services.OrderService, *models.Order, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		}
		return nil, nil, false
	}
	if order.ClientID != user.ID {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to pay on this order")
		return nil, nil, false
	}
	return orderSvc, order, true
}

// verifyChargedAmount checks that the gateway order actually carries the
// amount about to be recorded. The callback signature only proves the payment
// id belongs to the gateway order; the order held by the gateway is the
// source of truth for how much was charged, so a genuine signature from a
// small charge cannot authorize a larger ledger credit.
func verifyChargedAmount(c *gin.Context, gatewayOrderID string, amountCents int64) bool {
	gateway := services.GetPaymentGateway()
	gwOrder, err := gateway.FetchGatewayOrder(c.Request.Context(), gatewayOrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGatewayConfig):
			respondError(c, http.StatusServiceUnavailable, "CONFIG_ERROR",
				"Payment gateway credentials are not configured. Set PAYMENT_GATEWAY_KEY_ID and PAYMENT_GATEWAY_KEY_SECRET.")
		case errors.Is(err, services.ErrGatewayOrderNotFound):
			respondError(c, http.StatusBadRequest, "GATEWAY_ORDER_NOT_FOUND", "No gateway order matches this payment")
		default:
			respondError(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway error", err.Error())
		}
		return false
	}

	if services.GatewayMinorUnits(amountCents, gwOrder.Currency) != gwOrder.Amount {
		respondError(c, http.StatusBadRequest, "AMOUNT_MISMATCH", "Confirmed amount does not match the gateway charge")
		return false
	}
	return true
}

type initiatePaymentRequest struct {
	Amount int64 `json:"amount"` // cents; optional, clamped to the payable shortfall
}

// InitiatePayment handles POST /api/v1/orders/:id/payments/initiate -
// derives the payable shortfall (deposit first, then balance) and creates a
// gateway order for it. The requested amount is clamped, never exceeded:
// a client trying to pay the full total before the deposit only gets the
// deposit shortfall charged.
func InitiatePayment(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	_, order, ok := loadOwnOrder(c, user)
	if !ok {
		return
	}

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	payable := services.PayableAmount(order)
	if payable == 0 {
		message := "This order is fully paid"
		if order.Status == models.StatusPending {
			message = "This order is awaiting a quote; nothing can be paid yet"
		}
		respondError(c, http.StatusConflict, "NOTHING_PAYABLE", message)
		return
	}

	amount := req.Amount
	if amount <= 0 || amount > payable {
		amount = payable
	}

	purpose := models.PaymentPurposeBalance
	if order.AmountPaid < order.DepositAmount {
		purpose = models.PaymentPurposeDeposit
	}

	gateway := services.GetPaymentGateway()
	receipt := services.NewReceipt()
	gwOrder, err := gateway.CreateGatewayOrder(c.Request.Context(), amount, receipt)
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
		"gateway_order_id": gwOrder.ID,
		"amount":           gwOrder.Amount,
		"currency":         gwOrder.Currency,
		"key_id":           gateway.KeyID(),
		"receipt":          receipt,
		"payable_amount":   amount,
		"purpose":          purpose,
	})
}

type confirmPaymentRequest struct {
	Amount           int64  `json:"amount" binding:"required,gt=0"` // cents, base currency
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
	Receipt          string `json:"receipt"`
}

// ConfirmPayment handles POST /api/v1/orders/:id/payments/confirm - verifies
// the widget callback signature and records the payment: ledger entry first,
// aggregate second. An aggregate failure after the ledger write is surfaced
// as a reconcilable contact-support error, never retried blindly.
func ConfirmPayment(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	orderSvc, order, ok := loadOwnOrder(c, user)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
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

	if !verifyChargedAmount(c, req.GatewayOrderID, req.Amount) {
		return
	}

	updated, recorded, err := orderSvc.RecordPayment(order.ID, req.Amount, services.VerifiedCharge{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Receipt:          req.Receipt,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAggregateDrift):
			respondError(c, http.StatusInternalServerError, "PAYMENT_LEDGER_DRIFT",
				fmt.Sprintf("Your payment was recorded but the order balance could not be updated. Do not retry payment; contact %s and quote receipt %s.",
					config.GetConfig().SupportEmail, req.Receipt))
		case errors.Is(err, services.ErrNothingPayable):
			respondError(c, http.StatusConflict, "NOTHING_PAYABLE", "No payment is currently due on this order")
		case errors.Is(err, services.ErrDuplicateCharge):
			respondError(c, http.StatusConflict, "DUPLICATE_CHARGE", "This gateway payment has already been recorded")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record payment")
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"order":           updated,
		"recorded_amount": recorded,
		"payable_amount":  services.PayableAmount(updated),
	})
}

type cancelPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
}

// CancelPayment handles POST /api/v1/orders/:id/payments/cancel - the client
// dismissed the checkout widget. Cancellation is a first-class outcome, not
// an error: nothing was charged, nothing is persisted, nothing is shown to
// the user beyond a neutral acknowledgement.
func CancelPayment(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	_, order, ok := loadOwnOrder(c, user)
	if !ok {
		return
	}

	var req cancelPaymentRequest
	_ = c.ShouldBindJSON(&req)

	log.Info().
		Uint("order_id", order.ID).
		Str("gateway_order_id", req.GatewayOrderID).
		Msg("payment attempt cancelled by client")

	respondOK(c, http.StatusOK, gin.H{"cancelled": true})
}
