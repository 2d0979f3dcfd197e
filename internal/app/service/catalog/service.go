package catalog

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumifin/reconciler/internal/models"
)

// Service reads the product catalog. The engine never writes it.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Snapshot loads the catalog rows for the given product ids, keyed by id.
// Missing ids are simply absent from the map; callers decide whether that
// is structural.
func (s *Service) Snapshot(ctx context.Context, productIDs []string) (map[string]*models.Product, error) {
	snapshot := make(map[string]*models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return snapshot, nil
	}

	var rows []*models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	for _, p := range rows {
		snapshot[p.ID] = p
	}
	return snapshot, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
