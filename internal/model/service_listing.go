package model

import "time"

type ServiceListing struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement"`
	ProviderUID  string     `gorm:"column:provider_uid;size:128;not null;index"`
	Title        string     `gorm:"size:120;not null"`
	Description  string     `gorm:"type:text;not null"`
	Category     string     `gorm:"column:category;size:64;not null;index"`
	City         string     `gorm:"column:city;size:120;index"`
	PriceUAH     uint       `gorm:"column:price_uah;not null"`
	BoostedUntil *time.Time `gorm:"column:boosted_until"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

func (ServiceListing) TableName() string {
	return "service_listings"
}
