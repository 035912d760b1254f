package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	referralCodePrefix  = "SV"
	referralCodeRetries = 5
	maxReferralDepth    = 32
)

type ReferralStats struct {
	Code                     string          `json:"code,omitempty"`
	TotalInvited             int64           `json:"totalInvited"`
	ActiveReferrals          int64           `json:"activeReferrals"`
	TotalEarnedFromReferrals decimal.Decimal `json:"totalEarnedFromReferrals"`
}

type ReferralService interface {
	EnsureReferralCode(ctx context.Context, uid string) (string, error)
	RecordReferral(ctx context.Context, code, newUID string) bool
	GrantReferralBonus(ctx context.Context, inviterUID, inviteeUID string, amount decimal.Decimal) (*GrantResult, error)
	RewardInviter(ctx context.Context, inviteeUID string)
	OnCharge(ctx context.Context, r *ChargeReceipt)
	Stats(ctx context.Context, uid string) (*ReferralStats, error)
}

type referralService struct {
	ledger  LedgerService
	users   repository.UserRepository
	entries repository.LedgerRepository
	notify  NotificationService
	bonus   decimal.Decimal
}

func NewReferralService(ledger LedgerService, users repository.UserRepository, entries repository.LedgerRepository, notify NotificationService, bonus decimal.Decimal) ReferralService {
	return &referralService{ledger: ledger, users: users, entries: entries, notify: notify, bonus: bonus}
}

func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return referralCodePrefix + strings.ToUpper(raw[:8])
}

// EnsureReferralCode returns the user's code, assigning one on first use.
// Concurrent callers converge on whichever code was stored first.
func (s *referralService) EnsureReferralCode(ctx context.Context, uid string) (string, error) {
	for i := 0; i < referralCodeRetries; i++ {
		u, err := s.users.FindByUID(ctx, uid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrUserNotFound
			}
			return "", err
		}
		if u.ReferralCode != nil && *u.ReferralCode != "" {
			return *u.ReferralCode, nil
		}
		code := newReferralCode()
		n, err := s.users.AssignReferralCodeIfEmpty(ctx, uid, code)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return "", err
		}
		if n == 1 {
			return code, nil
		}
	}
	return "", fmt.Errorf("referral code for %s: retries exhausted", uid)
}

// RecordReferral links newUID to the owner of code. Any problem leaves the
// user unlinked and is not reported; registration must still succeed.
func (s *referralService) RecordReferral(ctx context.Context, code, newUID string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || newUID == "" {
		return false
	}
	inviter, err := s.users.FindByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("%sreferral lookup %q: %v", reqctx.LogPrefix(ctx), code, err)
		}
		return false
	}
	if inviter.UID == newUID {
		log.Printf("%sreferral %q ignored: self-referral", reqctx.LogPrefix(ctx), code)
		return false
	}
	if s.formsCycle(ctx, inviter, newUID) {
		log.Printf("%sreferral %q ignored: %s is already upstream of %s", reqctx.LogPrefix(ctx), code, newUID, inviter.UID)
		return false
	}
	n, err := s.users.SetReferrerIfEmpty(ctx, newUID, inviter.UID)
	if err != nil {
		log.Printf("%sreferral link %s -> %s: %v", reqctx.LogPrefix(ctx), newUID, inviter.UID, err)
		return false
	}
	return n == 1
}

// formsCycle walks the inviter chain upward. An unreadable or overly deep
// chain is treated as a cycle.
func (s *referralService) formsCycle(ctx context.Context, inviter *model.User, newUID string) bool {
	cur := inviter
	for depth := 0; depth < maxReferralDepth; depth++ {
		if cur.ReferredByUID == nil || *cur.ReferredByUID == "" {
			return false
		}
		if *cur.ReferredByUID == newUID {
			return true
		}
		next, err := s.users.FindByUID(ctx, *cur.ReferredByUID)
		if err != nil {
			return !errors.Is(err, gorm.ErrRecordNotFound)
		}
		cur = next
	}
	return true
}

func (s *referralService) GrantReferralBonus(ctx context.Context, inviterUID, inviteeUID string, amount decimal.Decimal) (*GrantResult, error) {
	entry, err := s.ledger.Post(ctx, Posting{
		UserUID:        inviterUID,
		Amount:         amount,
		Kind:           model.EntryKindCredit,
		Reason:         model.ReasonReferralInviter,
		RelatedType:    "user",
		RelatedID:      inviteeUID,
		Description:    "Бонус за запрошеного користувача",
		IdempotencyKey: "referral:" + inviteeUID,
	})
	if errors.Is(err, ErrAlreadyPosted) {
		return &GrantResult{Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &GrantResult{Granted: true, Amount: entry.Amount, BalanceAfter: entry.BalanceAfter, EntryID: entry.ID}, nil
}

// RewardInviter pays the configured bonus to whoever invited inviteeUID.
// Called after each successful paid action; only the first one pays.
func (s *referralService) RewardInviter(ctx context.Context, inviteeUID string) {
	if !s.bonus.IsPositive() {
		return
	}
	u, err := s.users.FindByUID(ctx, inviteeUID)
	if err != nil {
		logBestEffort(ctx, "referral bonus lookup", err)
		return
	}
	if u.ReferredByUID == nil || *u.ReferredByUID == "" {
		return
	}
	res, err := s.GrantReferralBonus(ctx, *u.ReferredByUID, inviteeUID, s.bonus)
	if err != nil {
		logBestEffort(ctx, "referral bonus for "+inviteeUID, err)
		return
	}
	if res.Granted && s.notify != nil {
		entryID := res.EntryID
		s.notify.Notify(ctx, *u.ReferredByUID, NotificationReferralBonus,
			"Бонус за запрошення",
			fmt.Sprintf("Ваш друг скористався Свій. Нараховано %s UCM.", res.Amount.String()),
			&entryID, nil)
	}
}

func (s *referralService) OnCharge(ctx context.Context, r *ChargeReceipt) {
	s.RewardInviter(ctx, r.UserUID)
}

// Stats degrades to zero referral earnings when the ledger cannot be read.
func (s *referralService) Stats(ctx context.Context, uid string) (*ReferralStats, error) {
	invited, err := s.users.CountInvitees(ctx, uid)
	if err != nil {
		return nil, err
	}
	st := &ReferralStats{TotalInvited: invited, TotalEarnedFromReferrals: decimal.Zero}
	if u, err := s.users.FindByUID(ctx, uid); err == nil && u.ReferralCode != nil {
		st.Code = *u.ReferralCode
	}

	active, err := s.entries.CountRelatedByReason(ctx, uid, model.ReasonReferralInviter)
	if err != nil {
		log.Printf("%sreferral stats for %s: ledger unavailable: %v", reqctx.LogPrefix(ctx), uid, err)
		return st, nil
	}
	earned, err := s.entries.SumByReason(ctx, uid, model.ReasonReferralInviter)
	if err != nil {
		log.Printf("%sreferral stats for %s: ledger unavailable: %v", reqctx.LogPrefix(ctx), uid, err)
		return st, nil
	}
	st.ActiveReferrals = active
	st.TotalEarnedFromReferrals = earned
	return st, nil
}
