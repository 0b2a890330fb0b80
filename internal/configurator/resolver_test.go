package configurator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/configurator"
	"github.com/ariefcatur/go-bike-configurator/internal/constraint"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
	"github.com/ariefcatur/go-bike-configurator/internal/memstore"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

func seeded(t *testing.T) (*configurator.Resolver, *catalog.Service, catalog.Store) {
	t.Helper()
	store := memstore.New().Catalog()
	svc := catalog.NewService(store, nil, logger.Nop())
	_, err := catalog.SeedBicycle(context.Background(), svc, store)
	require.NoError(t, err)
	return configurator.NewResolver(store, "EUR"), svc, store
}

func fullSelection() map[string]string {
	return map[string]string{
		"frame-type":   "full-suspension",
		"frame-finish": "matte",
		"wheels":       "mountain-wheels",
		"rim-color":    "black-rim",
		"chain":        "8-speed",
	}
}

func TestResolve_PricesInFlowOrder(t *testing.T) {
	r, _, _ := seeded(t)

	cfg, err := r.Resolve(context.Background(), catalog.BicycleID, fullSelection())
	require.NoError(t, err)

	var parts []string
	for _, it := range cfg.Items {
		parts = append(parts, it.PartID)
	}
	assert.Equal(t, []string{"frame-type", "frame-finish", "wheels", "rim-color", "chain"}, parts)
	// matte costs 50 on a full-suspension frame: 130 + 50 + 90 + 20 + 35
	assert.Equal(t, "325.00", cfg.TotalPrice.String())
	assert.Equal(t, "50.00", cfg.Items[1].Price.String())
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestResolve_TotalIsSumOfPriceOf(t *testing.T) {
	r, _, store := seeded(t)
	ctx := context.Background()

	sel := fullSelection()
	sel["frame-type"] = "diamond"
	sel["wheels"] = "road-wheels"

	cfg, err := r.Resolve(ctx, catalog.BicycleID, sel)
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, catalog.BicycleID)
	require.NoError(t, err)
	g, err := constraint.Build(snap)
	require.NoError(t, err)

	sum := money.Zero
	for _, v := range sel {
		p, err := g.PriceOf(v, sel)
		require.NoError(t, err)
		sum = sum.Add(p)
	}
	assert.True(t, sum.Equal(cfg.TotalPrice), "want %s got %s", sum, cfg.TotalPrice)
	assert.Equal(t, "35.00", cfg.Items[1].Price.String())
}

func TestResolve_Rejections(t *testing.T) {
	r, _, _ := seeded(t)

	cases := []struct {
		name   string
		mutate func(map[string]string)
		code   string
		ids    []string
		part   string
	}{
		{
			name:   "missing part reported in flow order",
			mutate: func(s map[string]string) { delete(s, "frame-finish"); delete(s, "chain") },
			code:   apperr.CodeIncompleteSelection,
			part:   "frame-finish",
		},
		{
			name:   "unknown part",
			mutate: func(s map[string]string) { s["saddle"] = "leather" },
			code:   apperr.CodeNotFound,
			part:   "saddle",
		},
		{
			name:   "unknown variation",
			mutate: func(s map[string]string) { s["chain"] = "titanium-chain" },
			code:   apperr.CodeUnknownVariation,
			ids:    []string{"titanium-chain"},
			part:   "chain",
		},
		{
			name:   "variation of another part",
			mutate: func(s map[string]string) { s["chain"] = "red-rim" },
			code:   apperr.CodeInvalidVariationForPart,
			ids:    []string{"red-rim"},
			part:   "chain",
		},
		{
			name:   "prohibition recorded only on wheels",
			mutate: func(s map[string]string) { s["frame-type"] = "diamond" },
			code:   apperr.CodeProhibitedCombination,
			ids:    []string{"diamond", "mountain-wheels"},
		},
		{
			name: "prohibition recorded only on rim color",
			mutate: func(s map[string]string) {
				s["wheels"] = "fat-bike-wheels"
				s["rim-color"] = "red-rim"
			},
			code: apperr.CodeProhibitedCombination,
			ids:  []string{"fat-bike-wheels", "red-rim"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sel := fullSelection()
			tc.mutate(sel)

			_, err := r.Resolve(context.Background(), catalog.BicycleID, sel)
			require.Error(t, err)
			ae := apperr.As(err)
			assert.Equal(t, tc.code, ae.Code)
			if tc.ids != nil {
				assert.Equal(t, tc.ids, ae.VariationIDs)
			}
			if tc.part != "" {
				assert.Equal(t, tc.part, ae.PartID)
			}
		})
	}
}

func TestResolve_UnknownOrArchivedProduct(t *testing.T) {
	r, svc, _ := seeded(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "unicycle", fullSelection())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.ArchiveProduct(ctx, catalog.BicycleID))
	_, err = r.Preview(ctx, catalog.BicycleID, fullSelection())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
