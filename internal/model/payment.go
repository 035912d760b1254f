package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusNew      PaymentStatus = "new"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusDeclined PaymentStatus = "declined"
	PaymentStatusExpired  PaymentStatus = "expired"
)

// Terminal reports whether no further callback is expected.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusDeclined || s == PaymentStatusExpired
}

type Payment struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	OrderReference string          `gorm:"column:order_reference;size:64;not null;uniqueIndex:uk_payments_order_reference"`
	UserUID        string          `gorm:"column:user_uid;size:128;not null;index"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Currency       string          `gorm:"column:currency;size:8;not null"`
	Provider       string          `gorm:"column:provider;size:32;not null"`
	Status         PaymentStatus   `gorm:"column:status;size:16;not null;index"`
	Description    string          `gorm:"column:description;size:255"`
	RawRequest     datatypes.JSON  `gorm:"column:raw_request"`
	RawResponse    datatypes.JSON  `gorm:"column:raw_response"`
	ApprovedAt     *time.Time      `gorm:"column:approved_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
