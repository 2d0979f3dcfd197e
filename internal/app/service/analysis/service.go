package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumifin/reconciler/internal/models"
	"github.com/lumifin/reconciler/pkg/logctx"
	"github.com/lumifin/reconciler/pkg/tool"
	"github.com/lumifin/reconciler/pkg/types"
)

// Service answers analysis-credit questions and manages task lifecycle.
// Credits are minted by the checkout fan-out; this service only reads,
// backfills and advances them.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Credits is the per-user analysis credit balance.
type Credits struct {
	Purchased int64 `json:"purchased"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// Credits derives the balance from payments and their tasks. A credit is
// used once its task leaves the pending state.
func (s *Service) Credits(ctx context.Context, userID string) (*Credits, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid params: userID required")
	}

	var row struct {
		Purchased int64
		Used      int64
	}
	err := s.db.WithContext(ctx).Raw(`
SELECT
  COUNT(p.id) AS purchased,
  COUNT(t.id) FILTER (WHERE t.status <> ?) AS used
FROM payment p
LEFT JOIN analysis_task t ON t.payment_id = p.id
WHERE p.user_id = ? AND p.type = ? AND p.status = ?
`, models.AnalysisTaskStatusPending, userID, types.PaymentTypeAnalysis, types.PaymentStatusSucceeded).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute analysis credits: %w", err)
	}

	return &Credits{
		Purchased: row.Purchased,
		Used:      row.Used,
		Remaining: row.Purchased - row.Used,
	}, nil
}

// ListTasks returns a user's analysis tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]*models.AnalysisTask, error) {
	var tasks []*models.AnalysisTask
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	return tasks, nil
}

// BackfillTasks creates tasks for analysis payments that have none. The
// fan-out mints tasks inline, so this only repairs rows written before
// that behavior existed or after a partial failure.
func (s *Service) BackfillTasks(ctx context.Context, userID string) (int, error) {
	var payments []*models.Payment
	err := s.db.WithContext(ctx).
		Joins("LEFT JOIN analysis_task t ON t.payment_id = payment.id").
		Where("payment.user_id = ? AND payment.type = ? AND payment.status = ? AND t.id IS NULL",
			userID, types.PaymentTypeAnalysis, types.PaymentStatusSucceeded).
		Find(&payments).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find orphan analysis payments: %w", err)
	}

	created := 0
	now := time.Now()
	for _, p := range payments {
		task := &models.AnalysisTask{
			ID:         tool.GenerateUUIDV7(),
			UserID:     p.UserID,
			PaymentID:  p.ID,
			TicketCode: tool.GenerateTicketCode(now),
			Status:     models.AnalysisTaskStatusPending,
		}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			DoNothing: true,
		}).Create(task)
		if res.Error != nil {
			return created, fmt.Errorf("failed to backfill task for payment %s: %w", p.ID, res.Error)
		}
		created += int(res.RowsAffected)
	}
	if created > 0 {
		logctx.FromCtx(ctx, s.log).Infow("backfilled analysis tasks", "user_id", userID, "created", created)
	}
	return created, nil
}

// AdvanceTask moves one task forward in its lifecycle.
func (s *Service) AdvanceTask(ctx context.Context, ticketCode string, next models.AnalysisTaskStatus) (*models.AnalysisTask, error) {
	var task models.AnalysisTask
	if err := s.db.WithContext(ctx).Where("ticket_code = ?", ticketCode).First(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", ticketCode, err)
	}
	if !ValidTransition(task.Status, next) {
		return nil, fmt.Errorf("invalid status transition %s -> %s for task %s", task.Status, next, ticketCode)
	}

	if err := s.db.WithContext(ctx).Model(&task).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", ticketCode, err)
	}
	task.Status = next
	return &task, nil
}

// ValidTransition reports whether a task may move from one status to the
// next. Tasks only move forward; delivered is terminal.
func ValidTransition(from, to models.AnalysisTaskStatus) bool {
	switch from {
	case models.AnalysisTaskStatusPending:
		return to == models.AnalysisTaskStatusInProgress || to == models.AnalysisTaskStatusDelivered
	case models.AnalysisTaskStatusInProgress:
		return to == models.AnalysisTaskStatusDelivered
	default:
		return false
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
