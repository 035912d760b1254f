package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

// Posting describes one balance change. Amount is the magnitude; the sign
// stored on the entry follows Kind.
type Posting struct {
	UserUID        string
	Amount         decimal.Decimal
	Kind           model.EntryKind
	Reason         model.Reason
	RelatedType    string
	RelatedID      string
	Description    string
	IdempotencyKey string
}

type Consistency struct {
	UserUID   string          `json:"uid"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledgerSum"`
}

func (c Consistency) OK() bool {
	return c.Balance.Equal(c.LedgerSum)
}

// LedgerService is the only writer of users.balance. Every change goes
// through PostTx so the balance update and its ledger entry commit together.
type LedgerService interface {
	PostTx(ctx context.Context, tx *gorm.DB, p Posting) (*model.LedgerEntry, error)
	Post(ctx context.Context, p Posting) (*model.LedgerEntry, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Balance(ctx context.Context, uid string) (decimal.Decimal, error)
	History(ctx context.Context, uid string, limit, offset int) ([]model.LedgerEntry, int64, error)
	CheckConsistency(ctx context.Context, uid string) (*Consistency, error)
	Audit(ctx context.Context) ([]Consistency, error)
	AdminGrant(ctx context.Context, uid string, amount decimal.Decimal, description, key string) (*model.LedgerEntry, error)
}

type ledgerService struct {
	db     *gorm.DB
	users  repository.UserRepository
	ledger repository.LedgerRepository
}

func NewLedgerService(db *gorm.DB, users repository.UserRepository, ledger repository.LedgerRepository) LedgerService {
	return &ledgerService{db: db, users: users, ledger: ledger}
}

func (s *ledgerService) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *ledgerService) Post(ctx context.Context, p Posting) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry
	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		e, err := s.PostTx(ctx, tx, p)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PostTx applies p inside tx. A debit that would overdraw returns
// *InsufficientBalanceError and leaves the row untouched. A reused
// idempotency key returns ErrAlreadyPosted.
func (s *ledgerService) PostTx(ctx context.Context, tx *gorm.DB, p Posting) (*model.LedgerEntry, error) {
	if p.UserUID == "" {
		return nil, ErrUserNotFound
	}
	switch p.Kind {
	case model.EntryKindCredit, model.EntryKindDebit:
		if !p.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
	case model.EntryKindInfo:
		if !p.Amount.IsZero() {
			return nil, ErrInvalidAmount
		}
	default:
		return nil, fmt.Errorf("unknown entry kind %q", p.Kind)
	}

	users := s.users.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	if p.IdempotencyKey != "" {
		exists, err := ledger.ExistsByKey(ctx, p.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAlreadyPosted
		}
	}

	signed := p.Amount
	switch p.Kind {
	case model.EntryKindDebit:
		if err := users.Debit(ctx, p.UserUID, p.Amount); err != nil {
			if !errors.Is(err, repository.ErrInsufficientFunds) {
				return nil, err
			}
			u, ferr := users.FindByUID(ctx, p.UserUID)
			if ferr != nil {
				if errors.Is(ferr, gorm.ErrRecordNotFound) {
					return nil, ErrUserNotFound
				}
				return nil, ferr
			}
			return nil, newInsufficientBalance(p.Amount, u.Balance)
		}
		signed = p.Amount.Neg()
	case model.EntryKindCredit:
		if err := users.Credit(ctx, p.UserUID, p.Amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	u, err := users.FindByUID(ctx, p.UserUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	e := &model.LedgerEntry{
		UserUID:        p.UserUID,
		Amount:         signed,
		Kind:           p.Kind,
		Reason:         p.Reason,
		RelatedType:    strPtr(p.RelatedType),
		RelatedID:      strPtr(p.RelatedID),
		Description:    p.Description,
		IdempotencyKey: strPtr(p.IdempotencyKey),
		BalanceAfter:   u.Balance,
	}
	if err := ledger.Append(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyPosted
		}
		return nil, err
	}
	return e, nil
}

func (s *ledgerService) Balance(ctx context.Context, uid string) (decimal.Decimal, error) {
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return u.Balance, nil
}

func (s *ledgerService) History(ctx context.Context, uid string, limit, offset int) ([]model.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListByUser(ctx, uid, limit, offset)
}

func (s *ledgerService) CheckConsistency(ctx context.Context, uid string) (*Consistency, error) {
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	sum, err := s.ledger.Sum(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &Consistency{UserUID: uid, Balance: u.Balance, LedgerSum: sum}, nil
}

// Audit returns every user whose balance disagrees with its ledger sum.
func (s *ledgerService) Audit(ctx context.Context) ([]Consistency, error) {
	uids, err := s.users.ListUIDs(ctx)
	if err != nil {
		return nil, err
	}
	var bad []Consistency
	for _, uid := range uids {
		c, err := s.CheckConsistency(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", uid, err)
		}
		if !c.OK() {
			bad = append(bad, *c)
		}
	}
	return bad, nil
}

// AdminGrant credits a positive amount or debits a negative one.
func (s *ledgerService) AdminGrant(ctx context.Context, uid string, amount decimal.Decimal, description, key string) (*model.LedgerEntry, error) {
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	kind := model.EntryKindCredit
	if amount.IsNegative() {
		kind = model.EntryKindDebit
	}
	return s.Post(ctx, Posting{
		UserUID:        uid,
		Amount:         amount.Abs(),
		Kind:           kind,
		Reason:         model.ReasonAdminGrant,
		Description:    description,
		IdempotencyKey: key,
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
