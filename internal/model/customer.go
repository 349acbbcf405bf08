package model

import "time"

type Customer struct {
	UID            string    `gorm:"primaryKey;size:128"`
	Email          string    `gorm:"size:255;index;not null"`
	Name           string    `gorm:"size:160"`
	Phone          string    `gorm:"size:32"`
	DefaultAddress string    `gorm:"column:default_address;type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Customer) TableName() string {
	return "customers"
}
