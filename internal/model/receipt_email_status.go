package model

import "time"

// ReceiptEmailStatus is the receipt outbox row, written in the same
// transaction as its order. Delivery is best-effort: failures bump Attempts
// and push NextRetryAt out with exponential backoff, success sets Sent.
type ReceiptEmailStatus struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	OrderID        uint64     `gorm:"column:order_id;uniqueIndex;not null"`
	RecipientEmail string     `gorm:"column:recipient_email;size:255;not null"`
	Sent           bool       `gorm:"not null;default:false"`
	Attempts       int        `gorm:"not null;default:0"`
	LastError      string     `gorm:"column:last_error;type:text"`
	NextRetryAt    *time.Time `gorm:"column:next_retry_at;index"`
	SentAt         *time.Time `gorm:"column:sent_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

func (ReceiptEmailStatus) TableName() string {
	return "receipt_email_statuses"
}
