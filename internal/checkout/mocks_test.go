package checkout_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
)

type MockGateway struct{ mock.Mock }

func (m *MockGateway) Initiate(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentReceipt, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*checkout.PaymentReceipt)
	return r, args.Error(1)
}

type MockScheduler struct{ mock.Mock }

func (m *MockScheduler) SchedulePaymentTimeout(ctx context.Context, orderID string, after time.Duration) error {
	return m.Called(ctx, orderID, after).Error(0)
}

type MockEvents struct{ mock.Mock }

func (m *MockEvents) Emit(ctx context.Context, topic, eventType, orderID string, payload any) error {
	return m.Called(ctx, topic, eventType, orderID, payload).Error(0)
}

type MockIdempotency struct{ mock.Mock }

func (m *MockIdempotency) Claim(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotency) Complete(ctx context.Context, key, orderID string) error {
	return m.Called(ctx, key, orderID).Error(0)
}

func (m *MockIdempotency) Abandon(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
