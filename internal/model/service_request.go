package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "open"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCanceled   RequestStatus = "canceled"
)

// ServiceRequest is a paid posting where a customer asks for a service.
type ServiceRequest struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	AuthorUID   string          `gorm:"column:author_uid;size:128;index;not null"`
	ProviderUID *string         `gorm:"column:provider_uid;size:128;index"`
	Title       string          `gorm:"column:title;size:120;not null"`
	Description string          `gorm:"column:description;type:text;not null"`
	Category    string          `gorm:"column:category;size:64;not null"`
	City        string          `gorm:"column:city;size:120"`
	Promos      string          `gorm:"column:promos;size:255"`
	Status      RequestStatus   `gorm:"column:status;size:32;not null"`
	UCMCharged  decimal.Decimal `gorm:"column:ucm_charged;type:decimal(12,2);not null;default:0"`
	AcceptedAt  *time.Time      `gorm:"column:accepted_at"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}
