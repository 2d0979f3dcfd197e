package checkout

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/tool"
	"github.com/lumifin/reconciler/pkg/types"
)

// persist is the idempotent persistence step. Every insert goes through a
// conflict-resolving write on its natural key, so the guard operates at
// record granularity: a replay reuses existing rows, and a partially
// applied previous attempt resumes instead of duplicating.
func (s *Service) persist(ctx context.Context, sourceEventID, userID string, provider types.PaymentProvider, method string, intents []UnitIntent) (*Result, error) {
	result := &Result{}
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := loadApplied(ctx, tx, sourceEventID)
		if err != nil {
			return err
		}

		entitled := map[string]UnitIntent{}
		for _, intent := range intents {
			payment, created, err := s.applyUnit(ctx, tx, applied, sourceEventID, userID, provider, method, intent, now)
			if err != nil {
				return err
			}
			if created {
				result.PaymentsCreated++
			} else {
				result.PaymentsReused++
			}

			// Orders and analysis tasks ride on the payment's own unique
			// key so an interrupted prior attempt completes here.
			if provider == types.PaymentProviderStripe {
				n, err := s.applyOrder(ctx, tx, payment, intent, now)
				if err != nil {
					return err
				}
				result.OrdersCreated += n
			}
			if intent.Type == types.PaymentTypeAnalysis {
				n, err := s.applyAnalysisTask(ctx, tx, payment, now)
				if err != nil {
					return err
				}
				result.TasksCreated += n
			}
			if intent.GrantsEntitlement() && intent.UnitIndex == 0 {
				entitled[intent.ProductID] = intent
			}
		}

		for productID, intent := range entitled {
			n, err := s.applyEntitlement(ctx, tx, userID, productID, intent.TransactionKey)
			if err != nil {
				return err
			}
			result.EntitlementsCreated += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fan-out persistence for %s: %w", sourceEventID, err)
	}
	return result, nil
}

// loadApplied returns the already-applied payments for a dedup scope,
// keyed by transaction key.
func loadApplied(ctx context.Context, tx *gorm.DB, sourceEventID string) (map[string]*models.Payment, error) {
	var rows []*models.Payment
	err := tx.WithContext(ctx).
		Where("source_event_id = ? AND status = ?", sourceEventID, types.PaymentStatusSucceeded).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load applied payments: %w", err)
	}
	byKey := make(map[string]*models.Payment, len(rows))
	for _, p := range rows {
		byKey[p.TransactionKey] = p
	}
	return byKey, nil
}

// applyUnit inserts one payment unit, or returns the existing row when the
// unit was already applied. A concurrent duplicate delivery loses the
// insert race, detects the conflict and reuses the winner's row.
func (s *Service) applyUnit(ctx context.Context, tx *gorm.DB, applied map[string]*models.Payment, sourceEventID, userID string, provider types.PaymentProvider, method string, intent UnitIntent, now time.Time) (*models.Payment, bool, error) {
	if existing, ok := applied[intent.TransactionKey]; ok {
		return existing, false, nil
	}

	payment := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		Provider:       provider,
		SourceEventID:  sourceEventID,
		TransactionKey: intent.TransactionKey,
		ProductID:      intent.ProductID,
		Type:           intent.Type,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		Status:         types.PaymentStatusSucceeded,
		Method:         method,
		PurchaseAt:     now,
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_key"}},
		DoNothing: true,
	}).Create(payment)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to insert payment %s: %w", intent.TransactionKey, res.Error)
	}
	if res.RowsAffected == 0 {
		var winner models.Payment
		if err := tx.WithContext(ctx).Where("transaction_key = ?", intent.TransactionKey).First(&winner).Error; err != nil {
			return nil, false, fmt.Errorf("failed to reload payment %s: %w", intent.TransactionKey, err)
		}
		return &winner, false, nil
	}
	return payment, true, nil
}

func (s *Service) applyOrder(ctx context.Context, tx *gorm.DB, payment *models.Payment, intent UnitIntent, now time.Time) (int, error) {
	order := &models.Order{
		ID:          tool.GenerateUUIDV7(),
		PaymentID:   payment.ID,
		UserID:      payment.UserID,
		ProductID:   payment.ProductID,
		ProductName: intent.ProductName,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		MethodLabel: methodLabel(payment.Method),
		ValidatedAt: now,
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(order)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert order for payment %s: %w", payment.ID, res.Error)
	}
	return int(res.RowsAffected), nil
}

// applyAnalysisTask mints one analysis credit per analysis payment unit,
// unconditionally: prior analyses never suppress a new, paid-for credit.
func (s *Service) applyAnalysisTask(ctx context.Context, tx *gorm.DB, payment *models.Payment, now time.Time) (int, error) {
	task := &models.AnalysisTask{
		ID:         tool.GenerateUUIDV7(),
		UserID:     payment.UserID,
		PaymentID:  payment.ID,
		TicketCode: tool.GenerateTicketCode(now),
		Status:     models.AnalysisTaskStatusPending,
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(task)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert analysis task for payment %s: %w", payment.ID, res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Service) applyEntitlement(ctx context.Context, tx *gorm.DB, userID, productID, transactionKey string) (int, error) {
	var payment models.Payment
	if err := tx.WithContext(ctx).Where("transaction_key = ?", transactionKey).First(&payment).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve payment for entitlement %s/%s: %w", userID, productID, err)
	}

	grant := &models.Entitlement{
		ID:        tool.GenerateUUIDV7(),
		UserID:    userID,
		ProductID: productID,
		PaymentID: payment.ID,
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(grant)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert entitlement %s/%s: %w", userID, productID, res.Error)
	}
	return int(res.RowsAffected), nil
}
