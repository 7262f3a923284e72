package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
)

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Text          string `json:"text" binding:"required"`
	AttachmentURL string `json:"attachment_url" binding:"omitempty,url"`
}

// SendMessage handles POST /api/v1/orders/:id/messages - appends a chat
// entry on an order. Messages share the order's access-control boundary:
// the owning client and any staff role.
func SendMessage(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		respondError(c, notFoundStatus(err), "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if !canAccessOrder(user, &order) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to message on this order")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	message := models.Message{
		OrderID:  order.ID,
		SenderID: user.ID,
		Text:     req.Text,
	}
	if req.AttachmentURL != "" {
		message.AttachmentURL = &req.AttachmentURL
	}

	if err := db.Create(&message).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create message")
		return
	}

	// Load the sender relationship to return complete data
	if err := db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load message details")
		return
	}

	respondOK(c, http.StatusCreated, message)
}

// ListMessages handles GET /api/v1/orders/:id/messages - lists an order's
// chat entries, oldest first
func ListMessages(c *gin.Context) {
	user, ok := loadRequestUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		respondError(c, notFoundStatus(err), "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if !canAccessOrder(user, &order) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to view messages on this order")
		return
	}

	var messages []models.Message
	if err := db.Where("order_id = ?", order.ID).
		Preload("Sender").
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch messages")
		return
	}

	respondOK(c, http.StatusOK, messages)
}
