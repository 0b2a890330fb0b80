package httpx_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	"github.com/ariefcatur/go-bike-configurator/internal/configurator"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]catalog.Product)
	return ps, args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*catalog.Product)
	return p, args.Error(1)
}

func (m *MockCatalog) ListParts(ctx context.Context, productID string) ([]catalog.Part, error) {
	args := m.Called(ctx, productID)
	ps, _ := args.Get(0).([]catalog.Part)
	return ps, args.Error(1)
}

func (m *MockCatalog) GetPart(ctx context.Context, id string) (*catalog.Part, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*catalog.Part)
	return p, args.Error(1)
}

func (m *MockCatalog) ListVariations(ctx context.Context, partID string) ([]catalog.Variation, error) {
	args := m.Called(ctx, partID)
	vs, _ := args.Get(0).([]catalog.Variation)
	return vs, args.Error(1)
}

type MockAdmin struct{ mock.Mock }

func (m *MockAdmin) CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*catalog.Product)
	return out, args.Error(1)
}

func (m *MockAdmin) CreatePart(ctx context.Context, p catalog.Part) (*catalog.Part, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*catalog.Part)
	return out, args.Error(1)
}

func (m *MockAdmin) CreateVariation(ctx context.Context, v catalog.Variation) (*catalog.Variation, error) {
	args := m.Called(ctx, v)
	out, _ := args.Get(0).(*catalog.Variation)
	return out, args.Error(1)
}

func (m *MockAdmin) SetFlow(ctx context.Context, f catalog.Flow) (*catalog.Flow, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).(*catalog.Flow)
	return out, args.Error(1)
}

func (m *MockAdmin) ArchiveProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockStock struct{ mock.Mock }

func (m *MockStock) Available(ctx context.Context, variationID string) (int, error) {
	args := m.Called(ctx, variationID)
	return args.Int(0), args.Error(1)
}

func (m *MockStock) SetStockEnabled(ctx context.Context, variationID string, enabled bool) (ledger.Stock, error) {
	args := m.Called(ctx, variationID, enabled)
	return args.Get(0).(ledger.Stock), args.Error(1)
}

func (m *MockStock) Restock(ctx context.Context, variationID string, delta int) (ledger.Stock, error) {
	args := m.Called(ctx, variationID, delta)
	return args.Get(0).(ledger.Stock), args.Error(1)
}

type MockPricer struct{ mock.Mock }

func (m *MockPricer) Preview(ctx context.Context, productID string, selection map[string]string) (*configurator.Configuration, error) {
	args := m.Called(ctx, productID, selection)
	cfg, _ := args.Get(0).(*configurator.Configuration)
	return cfg, args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Checkout(ctx context.Context, req checkout.Request) (*orders.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *MockOrders) GetStatus(ctx context.Context, orderID string) (orders.Status, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(orders.Status), args.Error(1)
}

func (m *MockOrders) AdvanceStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	args := m.Called(ctx, orderID, to)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

func (m *MockOrders) CompletePayment(ctx context.Context, res checkout.PaymentResult) error {
	return m.Called(ctx, res).Error(0)
}

func (m *MockOrders) FailPayment(ctx context.Context, res checkout.PaymentResult) error {
	return m.Called(ctx, res).Error(0)
}
