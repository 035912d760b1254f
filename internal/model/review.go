package model

import "time"

type Review struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	RequestID   uint64    `gorm:"column:request_id;not null;uniqueIndex:uk_reviews_request_reviewer"`
	ReviewerUID string    `gorm:"column:reviewer_uid;size:128;not null;uniqueIndex:uk_reviews_request_reviewer;index"`
	TargetUID   string    `gorm:"column:target_uid;size:128;not null;index"`
	Rating      uint8     `gorm:"column:rating;not null"`
	Body        string    `gorm:"column:body;type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}
