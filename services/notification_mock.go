package services

import (
	"errors"
	"sync"
)

// MockNotifier records sent notifications for testing
type MockNotifier struct {
	Fail bool // when set, every Send fails

	sent []SentNotification
	mu   sync.Mutex
}

// SentNotification is one recorded Send call
type SentNotification struct {
	To      string
	Subject string
	Body    string
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetAsMockForTesting sets this mock as the global notifier for testing
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// Send records the notification, or fails when configured to
func (m *MockNotifier) Send(to, subject, body string) error {
	if m.Fail {
		return errors.New("mock notifier failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentNotification{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded notifications
func (m *MockNotifier) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentNotification, len(m.sent))
	copy(out, m.sent)
	return out
}
