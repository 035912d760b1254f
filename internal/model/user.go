package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User stores the profile and the spendable UCM balance of a Firebase account.
// Balance is only changed through ledger postings.
type User struct {
	UID           string          `gorm:"column:uid;primaryKey;size:128"`
	DisplayName   string          `gorm:"column:display_name;size:120"`
	Phone         string          `gorm:"column:phone;size:32"`
	City          string          `gorm:"column:city;size:120"`
	Bio           string          `gorm:"column:bio;type:text"`
	AvatarURL     string          `gorm:"column:avatar_url;size:512"`
	Balance       decimal.Decimal `gorm:"column:balance;type:decimal(12,2);not null;default:0"`
	ReferralCode  *string         `gorm:"column:referral_code;size:32;uniqueIndex:uk_users_referral_code"`
	ReferredByUID *string         `gorm:"column:referred_by_uid;size:128;index"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
