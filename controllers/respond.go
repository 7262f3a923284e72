package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/middleware"
	"github.com/devforge-studio/devforge-api/models"
)

// respondOK writes the standard success envelope
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string, details ...string) {
	errBody := gin.H{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 && details[0] != "" {
		errBody["details"] = details[0]
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   errBody,
	})
}

// loadRequestUser resolves the authenticated user for this request from the
// JWT subject. Identity is resolved per request, never held as ambient
// state. On failure the response is already written and ok is false.
func loadRequestUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, false
	}
	return &user, true
}

// loadStaffUser resolves the request user and rejects non-staff callers.
// The role stored on the user row is authoritative, not the token claim.
func loadStaffUser(c *gin.Context) (*models.User, bool) {
	user, ok := loadRequestUser(c)
	if !ok {
		return nil, false
	}
	if !user.IsStaff() {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Only staff can perform this action")
		return nil, false
	}
	return user, true
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}

// canAccessOrder reports whether the user may read or act on the order:
// the owning client, or any staff role.
func canAccessOrder(user *models.User, order *models.Order) bool {
	if user.IsStaff() {
		return true
	}
	return order.ClientID == user.ID
}

// notFoundStatus maps a gorm lookup error onto 404 vs 500
func notFoundStatus(err error) int {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
