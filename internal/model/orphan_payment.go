package model

import "time"

// OrphanPayment records a gateway-confirmed charge that did not produce an
// order (amount mismatch, race). The customer's money was captured, so the
// row stays until a staff member explicitly resolves it.
type OrphanPayment struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	Reference      string     `gorm:"size:128;uniqueIndex;not null"`
	AmountSubunits int64      `gorm:"column:amount_subunits;not null"`
	Currency       string     `gorm:"size:8;not null"`
	Reason         string     `gorm:"size:255"`
	RawPayload     string     `gorm:"column:raw_payload;type:text"`
	Reconciled     bool       `gorm:"not null;default:false"`
	ReconciledAt   *time.Time `gorm:"column:reconciled_at"`
	ResolutionNote string     `gorm:"column:resolution_note;type:text"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
}

func (OrphanPayment) TableName() string {
	return "orphan_payments"
}
