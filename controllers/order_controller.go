package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/services"
)

// ListOrders handles GET /api/v1/orders - clients see their own orders,
// staff see everything
func ListOrders(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())

	if user.IsStaff() {
		orders, err := orderSvc.ListAllOrders()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
			return
		}
		respondOK(c, http.StatusOK, orders)
		return
	}

	orders, err := orderSvc.ListOrdersForClient(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}
	respondOK(c, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/:id - returns the order plus the
// derived payable amount, recomputed on every request
func GetOrder(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		}
		return
	}
	if !canAccessOrder(user, order) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to view this order")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"order":          order,
		"payable_amount": services.PayableAmount(order),
	})
}

// RateOrderRequest represents the request body for rating an order
type RateOrderRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

// RateOrder handles POST /api/v1/orders/:id/rating - one-time client rating
// of a completed order
func RateOrder(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	orderSvc := services.NewOrderService(config.GetDB())
	order, err := orderSvc.Rate(user.ID, orderID, req.Rating, req.Review)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		case errors.Is(err, services.ErrNotOrderOwner):
			respondError(c, http.StatusForbidden, "FORBIDDEN", "You can only rate your own orders")
		case errors.Is(err, services.ErrOrderNotCompleted):
			respondError(c, http.StatusConflict, "ORDER_NOT_COMPLETED", "Only completed orders can be rated")
		case errors.Is(err, services.ErrAlreadyRated):
			respondError(c, http.StatusConflict, "ALREADY_RATED", "This order has already been rated")
		case errors.Is(err, services.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Rating must be between 1 and 5")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save rating")
		}
		return
	}

	respondOK(c, http.StatusOK, order)
}
