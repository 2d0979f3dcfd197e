package models

import "time"

// Order is a display/audit projection of a processor-sourced Payment.
type Order struct {
	ID          string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	PaymentID   string    `gorm:"column:payment_id;type:uuid;not null;uniqueIndex" json:"payment_id"`
	UserID      string    `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	ProductID   string    `gorm:"column:product_id;type:varchar(128);not null" json:"product_id"`
	ProductName string    `gorm:"column:product_name;type:varchar(256);not null" json:"product_name"`
	Amount      int64     `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency    string    `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	MethodLabel string    `gorm:"column:method_label;type:varchar(64);not null" json:"method_label"`
	ValidatedAt time.Time `gorm:"column:validated_at;not null" json:"validated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "order_record"
}
