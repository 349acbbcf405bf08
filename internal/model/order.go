package model

import "time"

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderChannel string

const (
	OrderChannelOnline  OrderChannel = "online"
	OrderChannelOffline OrderChannel = "offline"
)

// Order is created exactly once inside the checkout transaction. The unique
// index on payment_reference is the idempotency boundary: a retried checkout
// with the same reference resolves to this row instead of a second one.
type Order struct {
	ID      uint64       `gorm:"primaryKey;autoIncrement"`
	OrderNo string       `gorm:"column:order_no;size:32;uniqueIndex;not null"`
	Status  OrderStatus  `gorm:"size:32;not null"`
	Channel OrderChannel `gorm:"size:16;not null"`

	Currency        string `gorm:"size:8;not null"`
	ItemsSubtotal   int64  `gorm:"column:items_subtotal;not null"`
	DeliveryFee     int64  `gorm:"column:delivery_fee;not null"`
	TotalAmount     int64  `gorm:"column:total_amount;not null"`
	HomeTotalAmount int64  `gorm:"column:home_total_amount;not null"`

	PaymentMethod     string `gorm:"size:32"`
	PaymentReference  string `gorm:"column:payment_reference;size:128;uniqueIndex;not null"`
	PaymentProviderID int64  `gorm:"column:payment_provider_id"`
	PaymentVerified   bool   `gorm:"column:payment_verified;not null"`

	// Either a registered customer or an embedded guest snapshot.
	CustomerUID *string `gorm:"column:customer_uid;size:128;index"`
	GuestName   string  `gorm:"column:guest_name;size:160"`
	GuestEmail  string  `gorm:"column:guest_email;size:255"`
	GuestPhone  string  `gorm:"column:guest_phone;size:32"`

	DeliveryOption  string `gorm:"column:delivery_option;size:64"`
	DeliveryAddress string `gorm:"column:delivery_address;type:text"`

	// AccessToken lets a guest look their order up without an account.
	AccessToken string `gorm:"column:access_token;size:64;index"`

	RefundedAmount int64      `gorm:"column:refunded_amount"`
	RefundReason   string     `gorm:"column:refund_reason;size:255"`
	RefundedAt     *time.Time `gorm:"column:refunded_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a point-in-time snapshot of the purchased variant, decoupled
// from live product data. Immutable after creation.
type OrderItem struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID   uint64 `gorm:"column:order_id;index;not null"`
	ProductID uint64 `gorm:"column:product_id;not null"`
	VariantID uint64 `gorm:"column:variant_id;not null"`

	Name     string  `gorm:"size:160;not null"`
	ImageURL *string `gorm:"size:512"`
	Category string  `gorm:"size:80"`
	Color    string  `gorm:"size:64;not null"`
	Size     string  `gorm:"size:32;not null"`
	Quantity int64   `gorm:"not null"`

	UnitPrice     int64 `gorm:"column:unit_price;not null"`
	LineTotal     int64 `gorm:"column:line_total;not null"`
	HomeLineTotal int64 `gorm:"column:home_line_total;not null"`

	SizeModified       bool   `gorm:"column:size_modified;not null;default:false"`
	SizeModFee         int64  `gorm:"column:size_mod_fee"`
	CustomMeasurements string `gorm:"column:custom_measurements;type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
