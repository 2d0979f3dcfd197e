package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/types"
)

func TestResolveUserID(t *testing.T) {
	id, err := resolveUserID("u-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	id, err = resolveUserID("", map[string]string{"user_id": "u-2"})
	require.NoError(t, err)
	assert.Equal(t, "u-2", id)

	_, err = resolveUserID("", map[string]string{})
	require.Error(t, err)
	assert.True(t, faults.IsStructural(err))
}

func terminated(at time.Time) *models.Subscription {
	return &models.Subscription{
		Status: types.SubscriptionStatusCanceled,
		Metadata: datatypes.JSONMap{
			models.MetaKeyManuallyTerminated: true,
			models.MetaKeyTerminatedAt:       at.Format(time.RFC3339),
		},
	}
}

func TestDecideOverride(t *testing.T) {
	termAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		existing    *models.Subscription
		incoming    types.SubscriptionStatus
		createdAt   time.Time
		wantApply   bool
		wantCleared bool
	}{
		{
			name:      "no existing record",
			existing:  nil,
			incoming:  types.SubscriptionStatusActive,
			createdAt: termAt,
			wantApply: true,
		},
		{
			name:      "existing without marker",
			existing:  &models.Subscription{Status: types.SubscriptionStatusActive},
			incoming:  types.SubscriptionStatusActive,
			createdAt: termAt,
			wantApply: true,
		},
		{
			name:      "stale active signal is discarded",
			existing:  terminated(termAt),
			incoming:  types.SubscriptionStatusActive,
			createdAt: termAt.Add(-time.Hour),
			wantApply: false,
		},
		{
			name:        "newer subscription clears the marker",
			existing:    terminated(termAt),
			incoming:    types.SubscriptionStatusActive,
			createdAt:   termAt.Add(time.Hour),
			wantApply:   true,
			wantCleared: true,
		},
		{
			name:      "non-active update passes through",
			existing:  terminated(termAt),
			incoming:  types.SubscriptionStatusPastDue,
			createdAt: termAt.Add(-time.Hour),
			wantApply: true,
		},
		{
			name: "marker without timestamp stays terminated",
			existing: &models.Subscription{
				Metadata: datatypes.JSONMap{models.MetaKeyManuallyTerminated: true},
			},
			incoming:  types.SubscriptionStatusActive,
			createdAt: termAt.Add(time.Hour),
			wantApply: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideOverride(tt.existing, tt.incoming, tt.createdAt)
			assert.Equal(t, tt.wantApply, got.Apply)
			assert.Equal(t, tt.wantCleared, got.ClearMarker)
		})
	}
}

func TestComputeGraceUntil(t *testing.T) {
	assert.Nil(t, computeGraceUntil(nil, 3))

	end := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	got := computeGraceUntil(&end, 3)
	require.NotNil(t, got)
	assert.True(t, got.Equal(end.Add(72*time.Hour)))

	got = computeGraceUntil(&end, 0)
	require.NotNil(t, got)
	assert.True(t, got.Equal(end))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, types.SubscriptionStatusActive, mapStatus(stripe.SubscriptionStatusActive))
	assert.Equal(t, types.SubscriptionStatusCanceled, mapStatus(stripe.SubscriptionStatusCanceled))
	assert.Equal(t, types.SubscriptionStatusIncomplete, mapStatus(stripe.SubscriptionStatusIncompleteExpired))
	// Unknown provider states pass through verbatim.
	assert.Equal(t, types.SubscriptionStatus("paused"), mapStatus(stripe.SubscriptionStatus("paused")))
}

func TestSnapshotPeriod(t *testing.T) {
	start, end := snapshotPeriod(&stripe.Subscription{})
	assert.Nil(t, start)
	assert.Nil(t, end)

	snap := &stripe.Subscription{
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{
			CurrentPeriodStart: 1740000000,
			CurrentPeriodEnd:   1742600000,
		}}},
	}
	start, end = snapshotPeriod(snap)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, int64(1740000000), start.Unix())
	assert.Equal(t, int64(1742600000), end.Unix())
}
