package models

import (
	"time"

	"github.com/lumifin/reconciler/pkg/types"
)

// Payment is one purchased unit: a quantity-N line item yields N rows.
// Rows are immutable once created; corrections create new rows.
type Payment struct {
	ID       string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID   string                `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Provider types.PaymentProvider `gorm:"column:provider;type:varchar(64);not null" json:"provider"`
	// SourceEventID scopes deduplication to the originating checkout.
	SourceEventID string `gorm:"column:source_event_id;type:varchar(128);not null;index" json:"source_event_id"`
	// TransactionKey is derived from (source event id, product id, unit
	// index). The unique index makes concurrent duplicate inserts resolve
	// to one winner.
	TransactionKey string              `gorm:"column:transaction_key;type:varchar(256);not null;uniqueIndex" json:"transaction_key"`
	ProductID      string              `gorm:"column:product_id;type:varchar(128);not null" json:"product_id"`
	Type           types.PaymentType   `gorm:"column:type;type:varchar(64);not null" json:"type"`
	Amount         int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency       string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status         types.PaymentStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Method         string              `gorm:"column:method;type:varchar(64)" json:"method"`
	PurchaseAt     time.Time           `gorm:"column:purchase_at;not null" json:"purchase_at"`
	CreatedAt      time.Time           `json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}
