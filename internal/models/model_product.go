package models

import "time"

// Product is the read-only catalog row backing classification and pricing.
type Product struct {
	ID        string    `gorm:"column:id;type:varchar(128);primary_key" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(256);not null" json:"name"`
	Category  string    `gorm:"column:category;type:varchar(64);not null" json:"category"`
	IsPack    bool      `gorm:"column:is_pack;not null;default:false" json:"is_pack"`
	Price     int64     `gorm:"column:price;type:bigint;not null" json:"price"`
	Currency  string    `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Available bool      `gorm:"column:available;not null;default:true" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}
