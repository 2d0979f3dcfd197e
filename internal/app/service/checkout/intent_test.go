package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/types"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier("analyse-financiere", "^capsule[0-9]+$")
	require.NoError(t, err)
	return c
}

func TestParseCartManifest(t *testing.T) {
	entries, err := ParseCartManifest(`[{"id":"capsule2","quantity":1},{"id":"ebook-budget","quantity":2}]`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "capsule2", entries[0].ProductID)
	assert.Equal(t, int64(2), entries[1].Quantity)

	for name, raw := range map[string]string{
		"missing":       "",
		"not json":      "{broken",
		"empty list":    "[]",
		"no product id": `[{"quantity":1}]`,
		"zero quantity": `[{"id":"capsule2","quantity":0}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCartManifest(raw)
			require.Error(t, err)
			assert.True(t, faults.IsStructural(err))
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		entry    CartEntry
		product  *models.Product
		wantType types.PaymentType
		wantCat  string
	}{
		{
			name:     "predefined bundle needs no catalog row",
			entry:    CartEntry{ProductID: "capsule12"},
			wantType: types.PaymentTypeCapsule,
		},
		{
			name:     "bundle pattern wins over catalog category",
			entry:    CartEntry{ProductID: "capsule3"},
			product:  &models.Product{ID: "capsule3", Category: types.CategoryEbook},
			wantType: types.PaymentTypeCapsule,
			wantCat:  types.CategoryEbook,
		},
		{
			name:     "analysis by reserved id",
			entry:    CartEntry{ProductID: "analyse-financiere"},
			wantType: types.PaymentTypeAnalysis,
			wantCat:  types.CategoryAnalysis,
		},
		{
			name:     "analysis by catalog category",
			entry:    CartEntry{ProductID: "analyse-premium"},
			product:  &models.Product{ID: "analyse-premium", Category: types.CategoryAnalysis},
			wantType: types.PaymentTypeAnalysis,
			wantCat:  types.CategoryAnalysis,
		},
		{
			name:     "pack by flag",
			entry:    CartEntry{ProductID: "pack-debutant"},
			product:  &models.Product{ID: "pack-debutant", IsPack: true, Category: types.CategoryCapsules},
			wantType: types.PaymentTypePack,
			wantCat:  types.CategoryCapsules,
		},
		{
			name:     "abonnement forces excluded category",
			entry:    CartEntry{ProductID: "abo-mensuel"},
			product:  &models.Product{ID: "abo-mensuel", Category: types.CategoryAbonnement},
			wantType: types.PaymentTypeAbonnement,
			wantCat:  types.CategoryAbonnement,
		},
		{
			name:     "coaching",
			entry:    CartEntry{ProductID: "coaching-1h"},
			product:  &models.Product{ID: "coaching-1h", Category: types.CategoryCoaching},
			wantType: types.PaymentTypeCoaching,
			wantCat:  types.CategoryCoaching,
		},
		{
			name:     "unknown id without catalog row defaults to capsule",
			entry:    CartEntry{ProductID: "mystery"},
			wantType: types.PaymentTypeCapsule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, cat := c.Classify(tt.entry, tt.product)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantCat, cat)
		})
	}
}

func TestBuildUnitIntentsAnalysisFanOut(t *testing.T) {
	c := newTestClassifier(t)

	// Three financial analyses at 150.00 EUR total: three units of 50.00
	// each, no entitlement, deterministic keys.
	intents, err := c.BuildUnitIntents(
		[]CartEntry{{ProductID: "analyse-financiere", Quantity: 3}},
		PricingInput{
			CheckoutID: "cs_123",
			Lines: map[string]LineTotal{
				"analyse-financiere": {Amount: 15000, Quantity: 3, Currency: "eur"},
			},
			Total:    15000,
			Currency: "eur",
		},
	)
	require.NoError(t, err)
	require.Len(t, intents, 3)

	for i, in := range intents {
		assert.Equal(t, types.PaymentTypeAnalysis, in.Type)
		assert.Equal(t, int64(5000), in.Amount)
		assert.Equal(t, "eur", in.Currency)
		assert.Equal(t, i, in.UnitIndex)
		assert.False(t, in.GrantsEntitlement())
	}
	assert.Equal(t, "cs_123:analyse-financiere:0", intents[0].TransactionKey)
	assert.Equal(t, "cs_123:analyse-financiere:2", intents[2].TransactionKey)
}

func TestBuildUnitIntentsBundleGrantsEntitlement(t *testing.T) {
	c := newTestClassifier(t)

	intents, err := c.BuildUnitIntents(
		[]CartEntry{{ProductID: "capsule2", Quantity: 1}},
		PricingInput{
			CheckoutID: "cs_456",
			Lines:      map[string]LineTotal{"capsule2": {Amount: 2500, Quantity: 1, Currency: "eur"}},
			Total:      2500,
			Currency:   "eur",
		},
	)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, types.PaymentTypeCapsule, intents[0].Type)
	assert.True(t, intents[0].GrantsEntitlement())
	assert.Equal(t, "cs_456:capsule2:0", intents[0].TransactionKey)
}

func TestBuildUnitIntentsPricingFallbacks(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("line remainder goes to first units", func(t *testing.T) {
		intents, err := c.BuildUnitIntents(
			[]CartEntry{{ProductID: "ebook-budget", Quantity: 3}},
			PricingInput{
				CheckoutID: "cs_1",
				Lines:      map[string]LineTotal{"ebook-budget": {Amount: 100, Quantity: 3, Currency: "eur"}},
				Total:      100,
				Currency:   "eur",
			},
		)
		require.NoError(t, err)
		require.Len(t, intents, 3)
		assert.Equal(t, int64(34), intents[0].Amount)
		assert.Equal(t, int64(33), intents[1].Amount)
		assert.Equal(t, int64(33), intents[2].Amount)
	})

	t.Run("catalog price when line is missing", func(t *testing.T) {
		intents, err := c.BuildUnitIntents(
			[]CartEntry{{ProductID: "ebook-budget", Quantity: 2}},
			PricingInput{
				CheckoutID: "cs_2",
				Catalog: map[string]*models.Product{
					"ebook-budget": {ID: "ebook-budget", Category: types.CategoryEbook, Price: 990, Currency: "eur"},
				},
				Total:    1980,
				Currency: "eur",
			},
		)
		require.NoError(t, err)
		require.Len(t, intents, 2)
		assert.Equal(t, int64(990), intents[0].Amount)
		assert.Equal(t, int64(990), intents[1].Amount)
		assert.Equal(t, types.PaymentTypeEbook, intents[0].Type)
	})

	t.Run("even split across all units as last resort", func(t *testing.T) {
		intents, err := c.BuildUnitIntents(
			[]CartEntry{
				{ProductID: "capsule1", Quantity: 1},
				{ProductID: "capsule2", Quantity: 2},
			},
			PricingInput{CheckoutID: "cs_3", Total: 1000, Currency: "eur"},
		)
		require.NoError(t, err)
		require.Len(t, intents, 3)
		// 1000 over 3 units: 334, 333, 333.
		assert.Equal(t, int64(334), intents[0].Amount)
		assert.Equal(t, int64(333), intents[1].Amount)
		assert.Equal(t, int64(333), intents[2].Amount)

		var sum int64
		for _, in := range intents {
			sum += in.Amount
		}
		assert.Equal(t, int64(1000), sum)
	})

	t.Run("missing checkout id is structural", func(t *testing.T) {
		_, err := c.BuildUnitIntents([]CartEntry{{ProductID: "capsule1", Quantity: 1}}, PricingInput{})
		require.Error(t, err)
		assert.True(t, faults.IsStructural(err))
	})
}
