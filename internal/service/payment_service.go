package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/archive"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/wayforpay"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultTopUpProduct = "Поповнення балансу UCM"

type PaymentLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

type CreatedPayment struct {
	OrderReference string                 `json:"orderReference"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	PayURL         string                 `json:"payUrl"`
	Form           wayforpay.PurchaseForm `json:"form"`
}

type CallbackResult struct {
	OrderReference string
	Status         model.PaymentStatus
	Credited       bool
	// Mismatched is set when the callback's amount or currency differs
	// from the stored order. Nothing is changed but the callback is still
	// acknowledged so the provider stops retrying.
	Mismatched bool
	Ack        wayforpay.Ack
}

type PaymentService interface {
	CreatePayment(ctx context.Context, uid string, amount decimal.Decimal, description string) (*CreatedPayment, error)
	HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error)
	Get(ctx context.Context, uid, orderReference string) (*model.Payment, error)
	ListByUser(ctx context.Context, uid string, limit int) ([]model.Payment, error)
}

type paymentService struct {
	ledger   LedgerService
	users    repository.UserRepository
	payments repository.PaymentRepository
	merchant *wayforpay.Merchant
	archiver archive.Archiver
	notify   NotificationService
	currency string
	limits   PaymentLimits
	now      func() time.Time
}

func NewPaymentService(
	ledger LedgerService,
	users repository.UserRepository,
	payments repository.PaymentRepository,
	merchant *wayforpay.Merchant,
	archiver archive.Archiver,
	notify NotificationService,
	currency string,
	limits PaymentLimits,
) PaymentService {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &paymentService{
		ledger:   ledger,
		users:    users,
		payments: payments,
		merchant: merchant,
		archiver: archiver,
		notify:   notify,
		currency: currency,
		limits:   limits,
		now:      time.Now,
	}
}

func newOrderReference(now time.Time) string {
	return fmt.Sprintf("SVIY-%d-%s", now.Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *paymentService) validAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return false
	}
	if s.limits.Min.IsPositive() && amount.LessThan(s.limits.Min) {
		return false
	}
	if s.limits.Max.IsPositive() && amount.GreaterThan(s.limits.Max) {
		return false
	}
	return true
}

func (s *paymentService) CreatePayment(ctx context.Context, uid string, amount decimal.Decimal, description string) (*CreatedPayment, error) {
	if !s.validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if _, err := s.users.FindByUID(ctx, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = defaultTopUpProduct
	}
	now := s.now()
	ref := newOrderReference(now)
	form := s.merchant.PurchaseForm(wayforpay.PurchaseRequest{
		OrderReference: ref,
		OrderDate:      now,
		Amount:         amount,
		Currency:       s.currency,
		ProductName:    description,
	})
	raw, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		OrderReference: ref,
		UserUID:        uid,
		Amount:         amount,
		Currency:       s.currency,
		Provider:       wayforpay.ProviderName,
		Status:         model.PaymentStatusNew,
		Description:    description,
		RawRequest:     datatypes.JSON(raw),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("%spayment %s created: %s %s", reqctx.LogPrefix(ctx), ref, amount.StringFixed(2), s.currency)
	return &CreatedPayment{
		OrderReference: ref,
		Amount:         amount,
		Currency:       s.currency,
		PayURL:         wayforpay.PayURL,
		Form:           form,
	}, nil
}

func mapProviderStatus(status string) model.PaymentStatus {
	switch status {
	case wayforpay.StatusApproved:
		return model.PaymentStatusApproved
	case wayforpay.StatusDeclined, wayforpay.StatusRefunded, wayforpay.StatusVoided:
		return model.PaymentStatusDeclined
	case wayforpay.StatusExpired:
		return model.PaymentStatusExpired
	}
	return model.PaymentStatusPending
}

// HandleCallback applies a provider notification. The signature is checked
// before anything is read or written; approval credits the user exactly
// once per order no matter how often the provider retries.
func (s *paymentService) HandleCallback(ctx context.Context, raw []byte) (*CallbackResult, error) {
	cb, err := wayforpay.ParseCallback(raw)
	if err != nil {
		log.Printf("%swayforpay callback unreadable: %v", reqctx.LogPrefix(ctx), err)
		return nil, err
	}
	if err := s.merchant.VerifyCallback(cb); err != nil {
		log.Printf("%swayforpay callback rejected for order %q: %v", reqctx.LogPrefix(ctx), cb.OrderReference, err)
		return nil, err
	}
	ref := cb.OrderReference
	body, err := json.Marshal(cb)
	if err != nil {
		return nil, err
	}
	if err := s.archiver.Archive(ctx, ref, body); err != nil {
		log.Printf("%sarchive callback %s: %v", reqctx.LogPrefix(ctx), ref, err)
	}

	p, err := s.payments.FindByOrderReference(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("%swayforpay callback for unknown order %q", reqctx.LogPrefix(ctx), ref)
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	amount, err := cb.AmountDecimal()
	if err != nil {
		return nil, wayforpay.ErrMalformedCallback
	}
	if !amount.Equal(p.Amount) || !strings.EqualFold(cb.Currency, p.Currency) {
		log.Printf("%swayforpay callback for %s ignored: got %s %s, expected %s %s",
			reqctx.LogPrefix(ctx), ref, amount, cb.Currency, p.Amount, p.Currency)
		return &CallbackResult{
			OrderReference: ref,
			Status:         p.Status,
			Mismatched:     true,
			Ack:            s.merchant.Acknowledge(ref, s.now()),
		}, nil
	}

	status := mapProviderStatus(cb.TransactionStatus)
	final := status
	var (
		credited bool
		changed  bool
		entryID  uint64
	)
	err = s.ledger.Transaction(ctx, func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		locked, err := payments.LockByOrderReference(ctx, ref)
		if err != nil {
			return err
		}
		if status == model.PaymentStatusApproved {
			n, err := payments.MarkApprovedIfNot(ctx, locked.ID, datatypes.JSON(body), s.now())
			if err != nil {
				return err
			}
			if n == 0 {
				return payments.RecordResponse(ctx, locked.ID, datatypes.JSON(body))
			}
			entry, err := s.ledger.PostTx(ctx, tx, Posting{
				UserUID:        locked.UserUID,
				Amount:         locked.Amount,
				Kind:           model.EntryKindCredit,
				Reason:         model.ReasonPaymentTopUp,
				RelatedType:    "payment",
				RelatedID:      ref,
				Description:    "Поповнення через WayForPay",
				IdempotencyKey: "payment:" + ref,
			})
			if err != nil {
				return err
			}
			credited, changed = true, true
			entryID = entry.ID
			return nil
		}
		if locked.Status == model.PaymentStatusApproved {
			final = model.PaymentStatusApproved
			return payments.RecordResponse(ctx, locked.ID, datatypes.JSON(body))
		}
		changed = locked.Status != status
		return payments.UpdateStatus(ctx, locked.ID, status, datatypes.JSON(body))
	})
	if err != nil {
		log.Printf("%swayforpay callback for %s failed: %v", reqctx.LogPrefix(ctx), ref, err)
		return nil, err
	}

	log.Printf("%swayforpay callback %s: provider=%s status=%s credited=%t", reqctx.LogPrefix(ctx), ref, cb.TransactionStatus, final, credited)
	if s.notify != nil && changed {
		paymentID := p.ID
		switch {
		case credited:
			s.notify.Notify(ctx, p.UserUID, NotificationTopUpApproved, "Баланс поповнено",
				fmt.Sprintf("Зараховано %s UCM.", p.Amount.String()), uint64Ptr(entryID), &paymentID)
		case final == model.PaymentStatusDeclined || final == model.PaymentStatusExpired:
			s.notify.Notify(ctx, p.UserUID, NotificationTopUpDeclined, "Оплату не виконано",
				fmt.Sprintf("Платіж %s не пройшов.", ref), nil, &paymentID)
		}
	}
	return &CallbackResult{
		OrderReference: ref,
		Status:         final,
		Credited:       credited,
		Ack:            s.merchant.Acknowledge(ref, s.now()),
	}, nil
}

func (s *paymentService) Get(ctx context.Context, uid, orderReference string) (*model.Payment, error) {
	p, err := s.payments.FindByOrderReference(ctx, orderReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if p.UserUID != uid {
		return nil, ErrOrderNotFound
	}
	return p, nil
}

func (s *paymentService) ListByUser(ctx context.Context, uid string, limit int) ([]model.Payment, error) {
	return s.payments.ListByUser(ctx, uid, limit)
}
