package catalog_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
	"github.com/ariefcatur/go-bike-configurator/internal/memstore"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, productID string) {
	m.Called(ctx, productID)
}

func newService(t *testing.T) (*catalog.Service, catalog.Store, *MockInvalidator) {
	t.Helper()
	store := memstore.New().Catalog()
	inv := new(MockInvalidator)
	return catalog.NewService(store, inv, logger.Nop()), store, inv
}

func TestService_SeedBicycle(t *testing.T) {
	svc, store, inv := newService(t)
	inv.On("Invalidate", mock.Anything, catalog.BicycleID).Return()
	ctx := context.Background()

	created, err := catalog.SeedBicycle(ctx, svc, store)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = catalog.SeedBicycle(ctx, svc, store)
	require.NoError(t, err)
	assert.False(t, created)

	parts, err := store.ListParts(ctx, catalog.BicycleID)
	require.NoError(t, err)
	var names []string
	for _, p := range parts {
		names = append(names, p.Name)
	}
	want := []string{"Frame Type", "Frame Finish", "Wheels", "Rim Color", "Chain"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("part order mismatch (-want +got):\n%s", diff)
	}

	part, err := store.GetPart(ctx, "wheels")
	require.NoError(t, err)
	assert.Equal(t, []string{"road-wheels", "mountain-wheels", "fat-bike-wheels"}, part.VariationIDs)
	inv.AssertExpectations(t)
}

func TestService_CreateVariation_PriceRules(t *testing.T) {
	svc, _, inv := newService(t)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.Product{Name: "Skis"})
	require.NoError(t, err)
	part, err := svc.CreatePart(ctx, catalog.Part{ProductID: p.ID, Name: "Bindings"})
	require.NoError(t, err)

	_, err = svc.CreateVariation(ctx, catalog.Variation{
		PartID: part.ID, Name: "Race",
		PriceRules: []catalog.PriceRule{{Price: money.MustParse("10")}, {Price: money.MustParse("12")}},
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidPriceRules))

	_, err = svc.CreateVariation(ctx, catalog.Variation{
		PartID: part.ID, Name: "Race",
		PriceRules: []catalog.PriceRule{{Price: money.MustParse("-1")}},
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidPriceRules))

	_, err = svc.CreateVariation(ctx, catalog.Variation{
		PartID: part.ID, Name: "Race", AvailableStock: -2,
		PriceRules: []catalog.PriceRule{{Price: money.MustParse("1")}},
	})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.CreateVariation(ctx, catalog.Variation{
		PartID: "missing", Name: "Race",
		PriceRules: []catalog.PriceRule{{Price: money.MustParse("1")}},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	v, err := svc.CreateVariation(ctx, catalog.Variation{
		PartID: part.ID, Name: "Race", StockEnabled: true,
		PriceRules: []catalog.PriceRule{{Price: money.MustParse("10")}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
}

func TestService_SetFlow_RejectsForeignPart(t *testing.T) {
	svc, _, inv := newService(t)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.Product{Name: "Bike"})
	require.NoError(t, err)
	part, err := svc.CreatePart(ctx, catalog.Part{ProductID: p.ID, Name: "Frame"})
	require.NoError(t, err)

	_, err = svc.SetFlow(ctx, catalog.Flow{ProductID: p.ID, PartIDs: []string{part.ID, "saddle"}})
	require.Error(t, err)
	assert.Equal(t, "saddle", apperr.As(err).PartID)

	_, err = svc.SetFlow(ctx, catalog.Flow{ProductID: p.ID, PartIDs: []string{part.ID, part.ID}})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.SetFlow(ctx, catalog.Flow{ProductID: p.ID, PartIDs: []string{part.ID}})
	assert.NoError(t, err)
}

func TestService_ArchiveProduct(t *testing.T) {
	svc, store, inv := newService(t)
	inv.On("Invalidate", mock.Anything, mock.Anything).Return()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.Product{Name: "Bike"})
	require.NoError(t, err)
	require.NoError(t, svc.ArchiveProduct(ctx, p.ID))

	list, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductArchived, got.Status)

	err = svc.ArchiveProduct(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestOrderedParts_FlowFirst(t *testing.T) {
	product := catalog.Product{PartIDs: []string{"a", "b", "c"}}
	parts := []catalog.Part{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got := catalog.OrderedParts(product, catalog.Flow{PartIDs: []string{"c", "a"}}, parts)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
