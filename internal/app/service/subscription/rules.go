package subscription

import (
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/faults"
	"github.com/lumifin/reconciler/pkg/types"
)

// resolveUserID picks the explicit id when given, otherwise reads it from
// the snapshot metadata. Resolving neither is a structural failure: the
// provider cannot fix it by redelivering.
func resolveUserID(explicit string, metadata map[string]string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if id := metadata["user_id"]; id != "" {
		return id, nil
	}
	return "", faults.Structuralf("cannot resolve user id from subscription metadata")
}

type overrideDecision struct {
	// Apply is false when the incoming update must be discarded entirely.
	Apply bool
	// ClearMarker is true when a legitimately new subscription supersedes
	// a manual termination and the marker must be removed.
	ClearMarker bool
}

// decideOverride applies the manual-override rule: an administrator-ended
// subscription ignores incoming `active` signals unless the provider-side
// subscription was created after the termination, in which case it is a
// genuinely new subscription and the marker is cleared.
func decideOverride(existing *models.Subscription, incoming types.SubscriptionStatus, providerCreatedAt time.Time) overrideDecision {
	if existing == nil || !existing.ManuallyTerminated() {
		return overrideDecision{Apply: true}
	}
	if incoming != types.SubscriptionStatusActive && incoming != types.SubscriptionStatusTrialing {
		return overrideDecision{Apply: true}
	}
	terminatedAt, ok := existing.TerminatedAt()
	if !ok {
		// Marker without timestamp: stay conservative, keep the override.
		return overrideDecision{Apply: false}
	}
	if providerCreatedAt.After(terminatedAt) {
		return overrideDecision{Apply: true, ClearMarker: true}
	}
	return overrideDecision{Apply: false}
}

// computeGraceUntil is current_period_end + graceDays. Absent period end
// means absent grace.
func computeGraceUntil(periodEnd *time.Time, graceDays int) *time.Time {
	if periodEnd == nil {
		return nil
	}
	g := periodEnd.Add(time.Duration(graceDays) * 24 * time.Hour)
	return &g
}

// mapStatus narrows the processor status to the local enum. Unknown values
// pass through verbatim so new provider states never break the upsert.
func mapStatus(s stripe.SubscriptionStatus) types.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return types.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return types.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return types.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return types.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusUnpaid:
		return types.SubscriptionStatusUnpaid
	case stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return types.SubscriptionStatusIncomplete
	default:
		return types.SubscriptionStatus(s)
	}
}

// snapshotPeriod extracts the current billing period bounds. Stripe keeps
// them on the first subscription item.
func snapshotPeriod(snap *stripe.Subscription) (start, end *time.Time) {
	if snap == nil || snap.Items == nil || len(snap.Items.Data) == 0 {
		return nil, nil
	}
	item := snap.Items.Data[0]
	if item.CurrentPeriodStart > 0 {
		t := time.Unix(item.CurrentPeriodStart, 0)
		start = &t
	}
	if item.CurrentPeriodEnd > 0 {
		t := time.Unix(item.CurrentPeriodEnd, 0)
		end = &t
	}
	return start, end
}

// snapshotPriceAndPlan extracts the price id and its parent product id.
func snapshotPriceAndPlan(snap *stripe.Subscription) (priceID, planID string) {
	if snap == nil || snap.Items == nil || len(snap.Items.Data) == 0 {
		return "", ""
	}
	price := snap.Items.Data[0].Price
	if price == nil {
		return "", ""
	}
	priceID = price.ID
	if price.Product != nil {
		planID = price.Product.ID
	}
	return priceID, planID
}
