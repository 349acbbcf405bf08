package model

import "time"

type Product struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:160;not null"`
	Slug         string    `gorm:"size:160;uniqueIndex;not null"`
	Description  string    `gorm:"type:text"`
	Category     string    `gorm:"size:80;index"`
	ImageURL     *string   `gorm:"size:512"`
	PriceNGN     int64     `gorm:"column:price_ngn;not null"`
	PriceUSD     int64     `gorm:"column:price_usd;not null"`
	AllowSizeMod bool      `gorm:"column:allow_size_mod;not null;default:false"`
	WeightKG     float64   `gorm:"column:weight_kg"`
	Active       bool      `gorm:"not null;default:true"`
	Variants     []Variant `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}

// Variant is one color/size combination of a product and the unit of stock
// tracking. Stock is only ever mutated by the conditional decrement inside
// the checkout transaction and by admin restocks.
type Variant struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ProductID uint64    `gorm:"column:product_id;uniqueIndex:idx_variant_combo;not null"`
	Color     string    `gorm:"size:64;uniqueIndex:idx_variant_combo;not null"`
	Size      string    `gorm:"size:32;uniqueIndex:idx_variant_combo;not null"`
	Stock     int64     `gorm:"not null;default:0"`
	WeightKG  float64   `gorm:"column:weight_kg"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Variant) TableName() string {
	return "variants"
}
