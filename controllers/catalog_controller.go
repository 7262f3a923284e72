package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/config"
	"github.com/devforge-studio/devforge-api/models"
	"github.com/devforge-studio/devforge-api/services"
)

// ListServices handles GET /api/v1/catalog/services - active custom-work
// offerings. Services carry no listed price; staff quote each order.
func ListServices(c *gin.Context) {
	var items []models.Service
	if err := config.GetDB().Where("active = ?", true).Order("created_at ASC").Find(&items).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch services")
		return
	}
	respondOK(c, http.StatusOK, items)
}

// projectListing decorates a marketplace listing with a per-country display
// price. The display string is derived on every request from the stored
// base-currency amount; the stored amount itself is never converted.
type projectListing struct {
	models.Project
	DisplayPrice string `json:"display_price"`
}

// ListProjects handles GET /api/v1/catalog/projects - marketplace listings
// with prices formatted for the caller's country (X-Country header,
// defaulting to the base country)
func ListProjects(c *gin.Context) {
	var projects []models.Project
	if err := config.GetDB().Order("created_at ASC").Find(&projects).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch projects")
		return
	}

	country := c.GetHeader("X-Country")
	listings := make([]projectListing, 0, len(projects))
	for _, p := range projects {
		listings = append(listings, projectListing{
			Project:      p,
			DisplayPrice: services.FormatPrice(p.Price, country),
		})
	}
	respondOK(c, http.StatusOK, listings)
}

// ValidateOffer handles GET /api/v1/offers/:code - checks a coupon code
// before checkout. Invalid codes are a local validation failure, shown
// inline, never touching persisted state.
func ValidateOffer(c *gin.Context) {
	offerSvc := services.NewOfferService(config.GetDB())
	offer, err := offerSvc.Validate(c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOfferNotFound):
			respondError(c, http.StatusNotFound, "OFFER_NOT_FOUND", "Offer code not found")
		case errors.Is(err, services.ErrOfferExpired):
			respondError(c, http.StatusGone, "OFFER_EXPIRED", "Offer code has expired")
		default:
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to validate offer")
		}
		return
	}
	respondOK(c, http.StatusOK, offer)
}
