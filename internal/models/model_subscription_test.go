package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/lumifin/reconciler/pkg/types"
)

func TestSubscription_ManuallyTerminated(t *testing.T) {
	var nilSub *Subscription
	assert.False(t, nilSub.ManuallyTerminated())

	sub := &Subscription{}
	assert.False(t, sub.ManuallyTerminated())

	sub.Metadata = datatypes.JSONMap{MetaKeyManuallyTerminated: true}
	assert.True(t, sub.ManuallyTerminated())

	// Non-bool marker values do not count as terminated.
	sub.Metadata = datatypes.JSONMap{MetaKeyManuallyTerminated: "yes"}
	assert.False(t, sub.ManuallyTerminated())
}

func TestSubscription_TerminatedAt(t *testing.T) {
	when := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	sub := &Subscription{Metadata: datatypes.JSONMap{MetaKeyTerminatedAt: when.Format(time.RFC3339)}}

	got, ok := sub.TerminatedAt()
	require.True(t, ok)
	assert.True(t, got.Equal(when))

	sub.Metadata = datatypes.JSONMap{MetaKeyTerminatedAt: "not a timestamp"}
	_, ok = sub.TerminatedAt()
	assert.False(t, ok)

	_, ok = (&Subscription{}).TerminatedAt()
	assert.False(t, ok)
}

func TestSubscription_Valid(t *testing.T) {
	now := time.Now()
	hour := time.Hour

	tests := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{name: "nil", sub: nil, want: false},
		{name: "canceled", sub: &Subscription{Status: types.SubscriptionStatusCanceled}, want: false},
		{
			name: "active within grace",
			sub: &Subscription{
				Status:           types.SubscriptionStatusActive,
				CurrentPeriodEnd: ptrTime(now.Add(-hour)),
				GraceUntil:       ptrTime(now.Add(hour)),
			},
			want: true,
		},
		{
			name: "active past grace",
			sub: &Subscription{
				Status:     types.SubscriptionStatusActive,
				GraceUntil: ptrTime(now.Add(-hour)),
			},
			want: false,
		},
		{
			name: "trialing without period end",
			sub:  &Subscription{Status: types.SubscriptionStatusTrialing},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Valid(now))
		})
	}
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "subscription", Subscription{}.TableName())
	require.Equal(t, "payment", Payment{}.TableName())
	require.Equal(t, "order_record", Order{}.TableName())
	require.Equal(t, "entitlement", Entitlement{}.TableName())
	require.Equal(t, "analysis_task", AnalysisTask{}.TableName())
	require.Equal(t, "webhook_event_log", WebhookEventLog{}.TableName())
}

func ptrTime(t time.Time) *time.Time { return &t }
