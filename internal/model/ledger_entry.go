package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDebit  EntryKind = "debit"
	EntryKindInfo   EntryKind = "info"
)

// Reason is the closed set of ledger reason codes. Paid and earning action
// identifiers are reasons too; see pricing.Action.Reason.
type Reason string

const (
	ReasonAdminGrant           Reason = "admin_grant"
	ReasonReferralInviter      Reason = "referral_inviter"
	ReasonPaymentTopUp         Reason = "payment_topup"
	ReasonRefundRequestFailure Reason = "refund_request_failure"
	ReasonRefundBoostFailure   Reason = "refund_boost_failure"
	ReasonRefundSearchFailure  Reason = "refund_search_failure"
)

// LedgerEntry is an immutable record of a single balance change.
// Amount is signed: credits positive, debits negative, info entries zero.
type LedgerEntry struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	UserUID        string          `gorm:"column:user_uid;size:128;not null;index:idx_ledger_user_reason,priority:1"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Kind           EntryKind       `gorm:"column:kind;size:16;not null"`
	Reason         Reason          `gorm:"column:reason;size:64;not null;index:idx_ledger_user_reason,priority:2"`
	RelatedType    *string         `gorm:"column:related_type;size:32"`
	RelatedID      *string         `gorm:"column:related_id;size:64"`
	Description    string          `gorm:"column:description;size:255"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;size:191;uniqueIndex:uk_ledger_idempotency_key"`
	BalanceAfter   decimal.Decimal `gorm:"column:balance_after;type:decimal(12,2);not null"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
