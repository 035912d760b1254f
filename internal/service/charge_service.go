package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
)

type ChargeInput struct {
	UserUID     string
	Action      pricing.Action
	Promos      []pricing.Promo
	RelatedType string
	RelatedID   string
	Description string
}

type ChargeReceipt struct {
	UserUID       string          `json:"uid"`
	Action        pricing.Action  `json:"action"`
	AmountCharged decimal.Decimal `json:"amountCharged"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	EntryID       uint64          `json:"entryId"`
}

// ChargeHook runs once the resource paid for by a charge has been stored.
// It must not fail the action.
type ChargeHook func(ctx context.Context, r *ChargeReceipt)

type ChargeService interface {
	Quote(action pricing.Action, promos []pricing.Promo) (decimal.Decimal, error)
	Charge(ctx context.Context, in ChargeInput) (*ChargeReceipt, error)
	Commit(ctx context.Context, r *ChargeReceipt)
	Refund(ctx context.Context, r *ChargeReceipt, reason model.Reason, description string)
}

type chargeService struct {
	prices *pricing.Table
	ledger LedgerService
	hooks  []ChargeHook
}

func NewChargeService(prices *pricing.Table, ledger LedgerService, hooks ...ChargeHook) ChargeService {
	return &chargeService{prices: prices, ledger: ledger, hooks: hooks}
}

func (s *chargeService) Quote(action pricing.Action, promos []pricing.Promo) (decimal.Decimal, error) {
	if !s.prices.IsPaid(action) {
		return decimal.Zero, pricing.ErrUnknownAction
	}
	return s.prices.Total(action, promos)
}

// Charge debits the full price of action plus promos in one transaction.
// Nothing is written when the balance does not cover it. The caller settles
// the receipt with Commit on success or Refund on failure.
func (s *chargeService) Charge(ctx context.Context, in ChargeInput) (*ChargeReceipt, error) {
	total, err := s.Quote(in.Action, in.Promos)
	if err != nil {
		return nil, err
	}
	desc := in.Description
	if desc == "" {
		desc, _ = s.prices.Description(in.Action)
	}
	entry, err := s.ledger.Post(ctx, Posting{
		UserUID:     in.UserUID,
		Amount:      total,
		Kind:        model.EntryKindDebit,
		Reason:      in.Action.Reason(),
		RelatedType: in.RelatedType,
		RelatedID:   in.RelatedID,
		Description: desc,
	})
	if err != nil {
		var ib *InsufficientBalanceError
		if errors.As(err, &ib) {
			log.Printf("%scharge %s rejected: required=%s current=%s", reqctx.LogPrefix(ctx), in.Action, ib.Required, ib.Current)
		}
		return nil, err
	}
	return &ChargeReceipt{
		UserUID:       in.UserUID,
		Action:        in.Action,
		AmountCharged: total,
		BalanceAfter:  entry.BalanceAfter,
		EntryID:       entry.ID,
	}, nil
}

// Commit runs the hooks for a paid action that completed.
func (s *chargeService) Commit(ctx context.Context, r *ChargeReceipt) {
	if r == nil {
		return
	}
	for _, h := range s.hooks {
		h(ctx, r)
	}
}

// Refund returns a charge after the paid resource failed to materialize.
// It runs detached from the caller's cancellation and only logs on failure.
// A given charge is refunded at most once.
func (s *chargeService) Refund(ctx context.Context, r *ChargeReceipt, reason model.Reason, description string) {
	if r == nil || !r.AmountCharged.IsPositive() {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if description == "" {
		description = fmt.Sprintf("Повернення за %s", r.Action)
	}
	_, err := s.ledger.Post(rctx, Posting{
		UserUID:        r.UserUID,
		Amount:         r.AmountCharged,
		Kind:           model.EntryKindCredit,
		Reason:         reason,
		RelatedType:    "ledger_entry",
		RelatedID:      strconv.FormatUint(r.EntryID, 10),
		Description:    description,
		IdempotencyKey: "refund:" + strconv.FormatUint(r.EntryID, 10),
	})
	if err != nil && !errors.Is(err, ErrAlreadyPosted) {
		log.Printf("%srefund of entry %d (%s %s) failed: %v", reqctx.LogPrefix(ctx), r.EntryID, r.AmountCharged, r.Action, err)
	}
}
