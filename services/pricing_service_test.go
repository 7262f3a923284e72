package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name    string
		cents   int64
		country string
		want    string
	}{
		{"US identity", 50000, "US", "$500.00"},
		{"Germany converts to EUR", 50000, "DE", "€460.00"},
		{"UK converts to GBP", 50000, "GB", "£395.00"},
		{"Japan has no decimal places", 50000, "JP", "¥74750"},
		{"India", 10000, "IN", "₹8320.00"},
		{"unknown country falls back to US", 50000, "XX", "$500.00"},
		{"empty country falls back to US", 50000, "", "$500.00"},
		{"lowercase code accepted", 50000, "de", "€460.00"},
		{"zero amount", 0, "US", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.cents, tt.country))
		})
	}
}

func TestFormatPriceIsPure(t *testing.T) {
	// Same input, same output: formatting never mutates shared state
	first := FormatPrice(12345, "IN")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, FormatPrice(12345, "IN"))
	}
}

func TestCountryConfig(t *testing.T) {
	assert.Equal(t, "USD", CountryConfig("US").Currency)
	assert.Equal(t, "EUR", CountryConfig("FR").Currency)
	assert.Equal(t, "USD", CountryConfig("ZZ").Currency)
}

func TestGatewayMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"USD is the base currency, identity", 50000, "USD", 50000},
		{"INR converts then scales to paise", 50000, "INR", 4160000},
		{"JPY has no minor unit", 50000, "JPY", 74750},
		{"unknown currency settles as base", 50000, "BTC", 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GatewayMinorUnits(tt.cents, tt.currency))
		})
	}
}
