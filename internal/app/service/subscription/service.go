package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/internal/platform/stripeapi"
	cfgpkg "github.com/lumifin/reconciler/pkg/config"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/tool"
	"github.com/lumifin/reconciler/pkg/types"
)

// Service is the subscription synchronizer: the only writer of the
// subscription table. It merges processor snapshots into the local record,
// honoring grace periods and administrator overrides.
type Service struct {
	db        *gorm.DB
	cfg       *cfgpkg.Config
	processor stripeapi.Client
	log       *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *cfgpkg.Config, processor stripeapi.Client, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, processor: processor, log: log}
}

// SyncRequest drives one synchronization pass.
type SyncRequest struct {
	SubscriptionID string
	// UserID is optional; when empty it is read from the snapshot metadata.
	UserID string
	// StatusOverride forces the resulting status (e.g. canceled on a
	// deletion event). Empty means use the snapshot status.
	StatusOverride types.SubscriptionStatus
	Reason         types.SubscriptionChangeReason
}

// Sync fetches the canonical snapshot and upserts the local record keyed
// by user id. Fetch and store failures are retryable; an unresolvable user
// id is structural.
func (s *Service) Sync(ctx context.Context, req *SyncRequest) error {
	snap, err := s.processor.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return fmt.Errorf("processor fetch failed: %w", err)
	}

	userID, err := resolveUserID(req.UserID, snap.Metadata)
	if err != nil {
		return err
	}

	existing, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	incoming := mapStatus(snap.Status)
	if req.StatusOverride != "" {
		incoming = req.StatusOverride
	}

	decision := decideOverride(existing, incoming, time.Unix(snap.Created, 0))
	if !decision.Apply {
		logctx.FromCtx(ctx, s.log).Infow("subscription update discarded by manual override",
			"user_id", userID, "subscription_id", req.SubscriptionID, "incoming_status", incoming)
		return nil
	}

	record := s.buildRecord(userID, snap, incoming, existing, decision.ClearMarker)
	return s.upsert(ctx, record, existing, req.Reason)
}

// ManualTerminate is the administrator override: it cancels the local
// record and sets the marker that suppresses automatic reactivation from
// stale provider signals.
func (s *Service) ManualTerminate(ctx context.Context, userID, operatorID string) error {
	if userID == "" {
		return fmt.Errorf("invalid params: userID required")
	}

	existing, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	record := &models.Subscription{UserID: userID, Metadata: datatypes.JSONMap{}}
	if existing != nil {
		cp := *existing
		record = &cp
		if record.Metadata == nil {
			record.Metadata = datatypes.JSONMap{}
		}
	}
	now := time.Now()
	record.Status = types.SubscriptionStatusCanceled
	record.CanceledAt = &now
	record.Metadata[models.MetaKeyManuallyTerminated] = true
	record.Metadata[models.MetaKeyTerminatedAt] = now.Format(time.RFC3339)
	record.Metadata[models.MetaKeyTerminatedBy] = operatorID

	return s.upsert(ctx, record, existing, types.SubscriptionChangeReasonManualTerminate)
}

// Get returns the local record for a user, nil when absent.
func (s *Service) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.load(ctx, userID)
}

func (s *Service) load(ctx context.Context, userID string) (*models.Subscription, error) {
	var existing models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &existing, nil
}

func (s *Service) buildRecord(userID string, snap *stripe.Subscription, incoming types.SubscriptionStatus, existing *models.Subscription, clearMarker bool) *models.Subscription {
	periodStart, periodEnd := snapshotPeriod(snap)
	priceID, planID := snapshotPriceAndPlan(snap)

	record := &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: snap.ID,
		Status:               incoming,
		PlanID:               planID,
		PriceID:              priceID,
		CurrentPeriodStart:   periodStart,
		CurrentPeriodEnd:     periodEnd,
		GraceUntil:           computeGraceUntil(periodEnd, s.cfg.Reconcile.GraceDays),
		CancelAtPeriodEnd:    snap.CancelAtPeriodEnd,
	}
	if snap.Customer != nil {
		record.StripeCustomerID = snap.Customer.ID
	}
	if snap.CanceledAt > 0 {
		t := time.Unix(snap.CanceledAt, 0)
		record.CanceledAt = &t
	}

	// Merge metadata: existing map first, snapshot values win on key clash.
	merged := datatypes.JSONMap{}
	if existing != nil {
		for k, v := range existing.Metadata {
			merged[k] = v
		}
	}
	for k, v := range snap.Metadata {
		merged[k] = v
	}
	if clearMarker {
		delete(merged, models.MetaKeyManuallyTerminated)
		delete(merged, models.MetaKeyTerminatedAt)
		delete(merged, models.MetaKeyTerminatedBy)
	}
	record.Metadata = merged

	return record
}

// upsert performs the atomic single-row write keyed by user_id and records
// the transition in the subscription log asynchronously.
func (s *Service) upsert(ctx context.Context, record *models.Subscription, existing *models.Subscription, reason types.SubscriptionChangeReason) error {
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else if record.ID == "" {
		record.ID = tool.GenerateUUIDV7()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_subscription_id", "stripe_customer_id", "status", "plan_id", "price_id",
			"current_period_start", "current_period_end", "grace_until",
			"cancel_at_period_end", "canceled_at", "metadata", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	// Write change log asynchronously; errors are logged but not returned.
	go func(before, after *models.Subscription) {
		entry := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(after),
			Extra:  datatypes.JSONMap{},
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}(existing, record)

	return nil
}
