package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lumifin/reconciler/pkg/types"
)

// Metadata keys carried in Subscription.Metadata.
const (
	MetaKeyManuallyTerminated = "manually_terminated_by_admin"
	MetaKeyTerminatedAt       = "terminated_at"
	MetaKeyTerminatedBy       = "terminated_by"
)

// Subscription stores the reconciled subscription state for one user.
// At most one row per user; the synchronizer is its only writer.
// Rows are never deleted, only transitioned.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(128)" json:"stripe_subscription_id"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id;type:varchar(128)" json:"stripe_customer_id"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	PlanID               string                   `gorm:"column:plan_id;type:varchar(128)" json:"plan_id"`
	PriceID              string                   `gorm:"column:price_id;type:varchar(128)" json:"price_id"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	// GraceUntil is current_period_end plus the configured grace days.
	// Absent when the period end is absent.
	GraceUntil        *time.Time        `gorm:"column:grace_until;default:null" json:"grace_until"`
	CancelAtPeriodEnd bool              `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CanceledAt        *time.Time        `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// ManuallyTerminated reports whether an administrator ended this
// subscription by hand. Automatic reactivation must respect it.
func (s *Subscription) ManuallyTerminated() bool {
	if s == nil || s.Metadata == nil {
		return false
	}
	v, ok := s.Metadata[MetaKeyManuallyTerminated].(bool)
	return ok && v
}

// TerminatedAt returns the manual termination time, when present.
func (s *Subscription) TerminatedAt() (time.Time, bool) {
	if s == nil || s.Metadata == nil {
		return time.Time{}, false
	}
	raw, ok := s.Metadata[MetaKeyTerminatedAt].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether the subscription currently grants access,
// taking the grace window into account.
func (s *Subscription) Valid(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != types.SubscriptionStatusActive && s.Status != types.SubscriptionStatusTrialing {
		return false
	}
	if s.GraceUntil != nil {
		return s.GraceUntil.After(now)
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(now)
}
