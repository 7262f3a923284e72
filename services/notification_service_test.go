package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devforge-studio/devforge-api/models"
)

func TestDispatchSendsNotification(t *testing.T) {
	mock := &MockNotifier{}
	SetNotifier(mock)
	defer SetNotifier(nil)

	order := &models.Order{Type: models.OrderTypeService, Status: models.StatusPending}
	order.ID = 42

	Dispatch(EventOrderCreated, order, "client@example.com")
	FlushNotifications()

	sent := mock.Sent()
	assert.Len(t, sent, 1)
	assert.Equal(t, "client@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "Order #42")
	assert.Contains(t, sent[0].Body, "pending")
}

func TestDispatchStatusChange(t *testing.T) {
	mock := &MockNotifier{}
	SetNotifier(mock)
	defer SetNotifier(nil)

	order := &models.Order{Type: models.OrderTypeService, Status: models.StatusMockupReady}
	order.ID = 7

	Dispatch(EventStatusChanged, order, "client@example.com")
	FlushNotifications()

	sent := mock.Sent()
	assert.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, models.StatusMockupReady)
}

func TestDispatchSwallowsFailures(t *testing.T) {
	mock := &MockNotifier{Fail: true}
	SetNotifier(mock)
	defer SetNotifier(nil)

	order := &models.Order{Type: models.OrderTypeService, Status: models.StatusPending}
	order.ID = 1

	// Must not panic or surface anything; the failure is only logged
	Dispatch(EventOrderCreated, order, "client@example.com")
	FlushNotifications()
}

func TestDispatchWithoutNotifierIsNoop(t *testing.T) {
	SetNotifier(nil)

	order := &models.Order{Type: models.OrderTypeService, Status: models.StatusPending}
	order.ID = 1

	Dispatch(EventOrderCreated, order, "client@example.com")
	FlushNotifications()
}

func TestDispatchWithoutRecipientIsNoop(t *testing.T) {
	mock := &MockNotifier{}
	SetNotifier(mock)
	defer SetNotifier(nil)

	order := &models.Order{Type: models.OrderTypeService, Status: models.StatusPending}
	order.ID = 1

	Dispatch(EventOrderCreated, order, "")
	FlushNotifications()

	assert.Empty(t, mock.Sent())
}
