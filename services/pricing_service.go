package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CountryPricing describes how a base-currency amount is displayed for one
// country: the target currency, a static conversion rate, and the currency's
// conventional symbol and decimal places. Rates are lookup constants, not a
// live feed.
type CountryPricing struct {
	Currency string
	Symbol   string
	Rate     decimal.Decimal
	Decimals int32
}

// DefaultCountry is the fallback for unknown country codes
const DefaultCountry = "US"

var countryPricing = map[string]CountryPricing{
	"US": {Currency: "USD", Symbol: "$", Rate: decimal.NewFromInt(1), Decimals: 2},
	"CA": {Currency: "CAD", Symbol: "CA$", Rate: decimal.NewFromFloat(1.36), Decimals: 2},
	"GB": {Currency: "GBP", Symbol: "£", Rate: decimal.NewFromFloat(0.79), Decimals: 2},
	"DE": {Currency: "EUR", Symbol: "€", Rate: decimal.NewFromFloat(0.92), Decimals: 2},
	"FR": {Currency: "EUR", Symbol: "€", Rate: decimal.NewFromFloat(0.92), Decimals: 2},
	"IN": {Currency: "INR", Symbol: "₹", Rate: decimal.NewFromFloat(83.20), Decimals: 2},
	"JP": {Currency: "JPY", Symbol: "¥", Rate: decimal.NewFromFloat(149.50), Decimals: 0},
	"AU": {Currency: "AUD", Symbol: "A$", Rate: decimal.NewFromFloat(1.52), Decimals: 2},
}

// CountryConfig returns the pricing configuration for a country code,
// falling back to the default country when the code is unknown.
func CountryConfig(countryCode string) CountryPricing {
	if cfg, ok := countryPricing[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return cfg
	}
	return countryPricing[DefaultCountry]
}

// FormatPrice renders a base-currency amount (cents) as a display string for
// the given country. Pure function: only the displayed string is rounded,
// the stored amount is never touched.
func FormatPrice(amountCents int64, countryCode string) string {
	cfg := CountryConfig(countryCode)
	amount := decimal.NewFromInt(amountCents).
		Div(decimal.NewFromInt(100)).
		Mul(cfg.Rate).
		Round(cfg.Decimals)
	return cfg.Symbol + amount.StringFixed(cfg.Decimals)
}

// GatewayMinorUnits converts a base-currency amount (cents) into the minor
// units of the gateway's settlement currency. Unknown currencies settle in
// the base currency unchanged.
func GatewayMinorUnits(amountCents int64, currency string) int64 {
	cfg := countryPricing[DefaultCountry]
	for _, candidate := range countryPricing {
		if candidate.Currency == strings.ToUpper(strings.TrimSpace(currency)) {
			cfg = candidate
			break
		}
	}
	return decimal.NewFromInt(amountCents).
		Div(decimal.NewFromInt(100)).
		Mul(cfg.Rate).
		Shift(cfg.Decimals).
		Round(0).
		IntPart()
}
