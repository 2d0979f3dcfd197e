package models

import "time"

// Entitlement grants a user access to a purchased item. Subscriptions and
// financial analyses never appear here; packs grant the pack id only.
type Entitlement struct {
	ID        string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:ux_entitlement_user_product,priority:1" json:"user_id"`
	ProductID string    `gorm:"column:product_id;type:varchar(128);not null;uniqueIndex:ux_entitlement_user_product,priority:2" json:"product_id"`
	PaymentID string    `gorm:"column:payment_id;type:uuid;not null" json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Entitlement) TableName() string {
	return "entitlement"
}
