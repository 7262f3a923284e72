package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
)

func messageRouterFor(user models.User, role string) *gin.Engine {
	router := setupTestRouter()
	router.Use(mockAuthMiddleware(user.Auth0ID, role, "test-token"))
	router.POST("/orders/:id/messages", SendMessage)
	router.GET("/orders/:id/messages", ListMessages)
	return router
}

func seedMessageOrder(t *testing.T, db *gorm.DB, clientID uint) *models.Order {
	order := &models.Order{
		Type:   models.OrderTypeService,
		Status: models.StatusInProgress,
		Requirements: models.Requirements{
			Service: &models.ServiceRequirements{Summary: "Build a booking system"},
		},
		ClientID: clientID,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create order: %v", err)
	}
	return order
}

func TestSendAndListMessages(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	defer resetConfig()()

	client := createTestUser(t, db, "auth0|client", "client@example.com", models.RoleClient)
	staff := createTestUser(t, db, "auth0|staff", "staff@devforge.studio", models.RoleDeveloper)
	order := seedMessageOrder(t, db, client.ID)
	path := fmt.Sprintf("/orders/%d/messages", order.ID)

	// Client opens the thread
	w, response := doJSON(t, messageRouterFor(client, models.RoleClient), http.MethodPost, path, map[string]interface{}{
		"text": "How is the mockup coming along?",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataField(t, response)
	assert.Equal(t, "How is the mockup coming along?", data["text"])
	sender := data["sender"].(map[string]interface{})
	assert.Equal(t, client.Email, sender["email"])

	// Staff reply with an attachment
	w, response = doJSON(t, messageRouterFor(staff, models.RoleDeveloper), http.MethodPost, path, map[string]interface{}{
		"text":           "First draft attached",
		"attachment_url": "https://files.example.com/mockup-v1.pdf",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://files.example.com/mockup-v1.pdf", dataField(t, response)["attachment_url"])

	// Thread lists oldest first for anyone on the order
	w, response = doJSON(t, messageRouterFor(client, models.RoleClient), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	messages := response["data"].([]interface{})
	assert.Len(t, messages, 2)
	assert.Equal(t, "How is the mockup coming along?", messages[0].(map[string]interface{})["text"])
}

func TestMessagesShareOrderAccessBoundary(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	defer resetConfig()()

	client := createTestUser(t, db, "auth0|client", "client@example.com", models.RoleClient)
	outsider := createTestUser(t, db, "auth0|outsider", "outsider@example.com", models.RoleClient)
	order := seedMessageOrder(t, db, client.ID)
	path := fmt.Sprintf("/orders/%d/messages", order.ID)

	w, response := doJSON(t, messageRouterFor(outsider, models.RoleClient), http.MethodPost, path, map[string]interface{}{
		"text": "Let me in",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = doJSON(t, messageRouterFor(outsider, models.RoleClient), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))
}

func TestSendMessageValidation(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	defer resetConfig()()

	client := createTestUser(t, db, "auth0|client", "client@example.com", models.RoleClient)
	order := seedMessageOrder(t, db, client.ID)
	router := messageRouterFor(client, models.RoleClient)
	path := fmt.Sprintf("/orders/%d/messages", order.ID)

	w, response := doJSON(t, router, http.MethodPost, path, map[string]interface{}{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = doJSON(t, router, http.MethodPost, path, map[string]interface{}{
		"text":           "see attached",
		"attachment_url": "not-a-url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = doJSON(t, router, http.MethodPost, "/orders/9999/messages", map[string]interface{}{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", errorCode(response))
}
