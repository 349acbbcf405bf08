package model

import "time"

// OrderSerial is an append-only counter: each insert yields a fresh
// auto-increment value used only to derive the human-readable order number.
// Rows are never read back for business meaning and never updated. Gaps are
// fine (a rolled-back checkout may consume a serial), duplicates are not.
type OrderSerial struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OrderSerial) TableName() string {
	return "order_serials"
}
