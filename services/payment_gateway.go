package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devforge-studio/devforge-api/config"
)

var (
	// ErrGatewayConfig is an operator error: the charge cannot even be
	// attempted because credentials are missing.
	ErrGatewayConfig = errors.New("payment gateway credentials are not configured")
	// ErrSignatureMismatch means the callback payload was not signed by the
	// gateway; the charge is not considered confirmed.
	ErrSignatureMismatch = errors.New("gateway payment signature verification failed")
	// ErrGatewayOrderNotFound means the referenced gateway order does not
	// exist on the gateway.
	ErrGatewayOrderNotFound = errors.New("gateway order not found")
)

// GatewayOrder is the gateway-side order handed to the checkout widget
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // gateway currency minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// GatewayInterface is the server side of the checkout gateway: order
// creation with the secret credential, verification of the signature the
// widget's success callback returns, and lookup of a created order so the
// confirm flow can bind the recorded amount to what was actually charged.
type GatewayInterface interface {
	CreateGatewayOrder(ctx context.Context, amountCents int64, receipt string) (*GatewayOrder, error)
	FetchGatewayOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error
	KeyID() string
}

var gatewayInstance GatewayInterface

// InitPaymentGateway initializes the gateway adapter from configuration
func InitPaymentGateway(cfg *config.Config) GatewayInterface {
	gatewayInstance = NewPaymentGateway(cfg)
	return gatewayInstance
}

// GetPaymentGateway returns the initialized gateway instance
func GetPaymentGateway() GatewayInterface {
	return gatewayInstance
}

// SetPaymentGateway sets the gateway instance (primarily for testing)
func SetPaymentGateway(g GatewayInterface) {
	gatewayInstance = g
}

// PaymentGateway talks to the gateway's REST API. The key secret never
// leaves the server; the widget only ever sees the key id and the gateway
// order id.
type PaymentGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
}

// NewPaymentGateway creates a gateway adapter from configuration
func NewPaymentGateway(cfg *config.Config) *PaymentGateway {
	return &PaymentGateway{
		baseURL:   cfg.GatewayBaseURL,
		keyID:     cfg.GatewayKeyID,
		keySecret: cfg.GatewayKeySecret,
		currency:  cfg.GatewayCurrency,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// KeyID returns the public key id the checkout widget is invoked with
func (g *PaymentGateway) KeyID() string {
	return g.keyID
}

// NewReceipt generates a fresh idempotency receipt for one charge attempt.
// Receipts are per attempt, not per order: a retry after an ambiguous
// failure gets a new receipt and is a new charge as far as the gateway is
// concerned, so an impatient retry can double-charge. Known risk, not a
// guarantee; the ledger keeps every receipt so support can refund manually.
func NewReceipt() string {
	return "rcpt_" + uuid.NewString()
}

type gatewayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateGatewayOrder creates an order on the gateway for the given
// base-currency amount (cents). The gateway charges in its settlement
// currency converted via the static rate table; the ledger amount stays in
// the base currency regardless, preserving a single source of truth for
// accounting.
func (g *PaymentGateway) CreateGatewayOrder(ctx context.Context, amountCents int64, receipt string) (*GatewayOrder, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, ErrGatewayConfig
	}

	payload := gatewayOrderRequest{
		Amount:   GatewayMinorUnits(amountCents, g.currency),
		Currency: g.currency,
		Receipt:  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding gateway order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling payment gateway: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close gateway response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway rejected order (status %d): %s", resp.StatusCode, string(respBody))
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding gateway order: %w", err)
	}
	order.Receipt = receipt

	log.Info().
		Str("gateway_order_id", order.ID).
		Int64("amount_minor", payload.Amount).
		Str("currency", payload.Currency).
		Str("receipt", receipt).
		Msg("gateway order created")
	return &order, nil
}

// FetchGatewayOrder retrieves an order previously created on the gateway.
// The signature only proves the payment id belongs to the gateway order; the
// order itself is the source of truth for how much was charged, so confirm
// flows look it up instead of trusting a client-claimed amount.
func (g *PaymentGateway) FetchGatewayOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, ErrGatewayConfig
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/orders/"+url.PathEscape(gatewayOrderID), nil)
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling payment gateway: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close gateway response body")
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrGatewayOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway order lookup failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding gateway order: %w", err)
	}
	return &order, nil
}

// VerifySignature checks the HMAC-SHA256 signature the widget's success
// callback carries, proving the payment id was issued by the gateway for
// this gateway order. Constant-time comparison.
func (g *PaymentGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	if g.keySecret == "" {
		return ErrGatewayConfig
	}
	expected := SignPayment(g.keySecret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignPayment computes the gateway's payment signature: hex-encoded
// HMAC-SHA256 over "orderID|paymentID" with the key secret.
func SignPayment(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
