package model

import "time"

// ShippingLabel is the durable idempotency record for label purchases: the
// provider's request token may only be spent once, so reusing a token
// returns this row instead of calling the provider again. Survives restarts
// and multiple instances, unlike an in-process seen-set.
type ShippingLabel struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	OrderID      uint64    `gorm:"column:order_id;index;not null"`
	RequestToken string    `gorm:"column:request_token;size:128;uniqueIndex;not null"`
	CourierID    string    `gorm:"column:courier_id;size:64"`
	CourierName  string    `gorm:"column:courier_name;size:128"`
	ProviderRef  string    `gorm:"column:provider_ref;size:128"`
	FeeSubunits  int64     `gorm:"column:fee_subunits"`
	Currency     string    `gorm:"size:8"`
	TrackingURL  string    `gorm:"column:tracking_url;size:512"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (ShippingLabel) TableName() string {
	return "shipping_labels"
}
