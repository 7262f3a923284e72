package services

import (
	"context"
	"crypto/hmac"
	"fmt"
	"sync"
)

// MockGatewaySecret signs mock payments; tests use SignPayment with this
// secret to fabricate valid widget callbacks.
const MockGatewaySecret = "mock-gateway-secret"

// MockGateway is an in-memory gateway implementation for testing
type MockGateway struct {
	FailCreate error // returned by CreateGatewayOrder when set

	orders map[string]*GatewayOrder
	seq    int
	mu     sync.Mutex
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{orders: make(map[string]*GatewayOrder)}
}

// SetAsMockForTesting sets this mock as the global gateway instance for testing
func (m *MockGateway) SetAsMockForTesting() {
	SetPaymentGateway(m)
}

// KeyID returns a fixed public key id
func (m *MockGateway) KeyID() string {
	return "mock_key_id"
}

// CreateGatewayOrder simulates server-side gateway order creation
func (m *MockGateway) CreateGatewayOrder(_ context.Context, amountCents int64, receipt string) (*GatewayOrder, error) {
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	order := &GatewayOrder{
		ID:       fmt.Sprintf("gw_order_%d", m.seq),
		Amount:   GatewayMinorUnits(amountCents, "USD"),
		Currency: "USD",
		Receipt:  receipt,
	}
	m.orders[order.ID] = order
	return order, nil
}

// FetchGatewayOrder returns a previously created mock order
func (m *MockGateway) FetchGatewayOrder(_ context.Context, gatewayOrderID string) (*GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[gatewayOrderID]
	if !ok {
		return nil, ErrGatewayOrderNotFound
	}
	copied := *order
	return &copied, nil
}

// VerifySignature checks the mock HMAC signature
func (m *MockGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	expected := SignPayment(MockGatewaySecret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// CreatedOrders returns how many gateway orders were created (for assertions)
func (m *MockGateway) CreatedOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
