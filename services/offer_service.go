package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/devforge-studio/devforge-api/models"
)

var (
	ErrOfferNotFound   = errors.New("offer code not found")
	ErrOfferExpired    = errors.New("offer code has expired")
	ErrOfferExists     = errors.New("offer code already exists")
	ErrInvalidDiscount = errors.New("discount percent must be between 1 and 100")
)

// OfferService validates and administers discount coupons
type OfferService struct {
	db *gorm.DB
}

// NewOfferService creates an offer service over the given database handle
func NewOfferService(db *gorm.DB) *OfferService {
	return &OfferService{db: db}
}

// Validate looks up a coupon code (case-insensitive) and checks its expiry.
// Expiry is compared at day granularity: an offer dated today is still
// valid, one dated yesterday is not.
func (s *OfferService) Validate(code string) (*models.Offer, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrOfferNotFound
	}

	var offer models.Offer
	if err := s.db.Where("code = ?", code).First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("looking up offer: %w", err)
	}

	if offer.ValidUntil != nil && dateOnly(*offer.ValidUntil).Before(dateOnly(time.Now())) {
		return nil, ErrOfferExpired
	}
	return &offer, nil
}

// Create registers a new coupon. Codes are stored uppercase.
func (s *OfferService) Create(code string, discountPercent int, validUntil *time.Time) (*models.Offer, error) {
	if discountPercent < 1 || discountPercent > 100 {
		return nil, ErrInvalidDiscount
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New("offer code is required")
	}

	var existing models.Offer
	if err := s.db.Where("code = ?", code).First(&existing).Error; err == nil {
		return nil, ErrOfferExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking offer code: %w", err)
	}

	offer := models.Offer{Code: code, DiscountPercent: discountPercent, ValidUntil: validUntil}
	if err := s.db.Create(&offer).Error; err != nil {
		return nil, fmt.Errorf("creating offer: %w", err)
	}
	return &offer, nil
}

// Delete removes a coupon by code
func (s *OfferService) Delete(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	res := s.db.Where("code = ?", code).Delete(&models.Offer{})
	if res.Error != nil {
		return fmt.Errorf("deleting offer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// DiscountAmount computes the coupon discount in cents, rounded down
func DiscountAmount(totalCents int64, offer *models.Offer) int64 {
	if offer == nil {
		return 0
	}
	return totalCents * int64(offer.DiscountPercent) / 100
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
