package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/archive"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/testutil"
	"github.com/sviy-ua/sviy-backend/internal/wayforpay"
	"gorm.io/gorm"
)

const (
	testMerchant = "test_merch_n1"
	testSecret   = "flk3409refn54t54t*FNJRET"
)

type testEnv struct {
	db       *gorm.DB
	prices   *pricing.Table
	merchant *wayforpay.Merchant

	userRepo     repository.UserRepository
	entryRepo    repository.LedgerRepository
	paymentRepo  repository.PaymentRepository
	listingRepo  repository.ListingRepository
	requestRepo  repository.RequestRepository
	reviewRepo   repository.ReviewRepository
	notification repository.NotificationRepository

	ledger    LedgerService
	notify    NotificationService
	referrals ReferralService
	rewards   *rewardService
	charges   ChargeService
	payments  *paymentService
	requests  RequestService
	listings  *listingService
	reviews   ReviewService
	users     UserService
}

type envOption func(*testEnv)

func withPrices(t *pricing.Table) envOption {
	return func(e *testEnv) { e.prices = t }
}

func withRequestRepo(wrap func(repository.RequestRepository) repository.RequestRepository) envOption {
	return func(e *testEnv) { e.requestRepo = wrap(e.requestRepo) }
}

func withListingRepo(wrap func(repository.ListingRepository) repository.ListingRepository) envOption {
	return func(e *testEnv) { e.listingRepo = wrap(e.listingRepo) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gdb := testutil.NewDB(t)
	e := &testEnv{
		db:           gdb,
		prices:       pricing.Default(),
		merchant:     wayforpay.NewMerchant(testMerchant, "sviy.com.ua", testSecret, "", ""),
		userRepo:     repository.NewUserRepository(gdb),
		entryRepo:    repository.NewLedgerRepository(gdb),
		paymentRepo:  repository.NewPaymentRepository(gdb),
		listingRepo:  repository.NewListingRepository(gdb),
		requestRepo:  repository.NewRequestRepository(gdb),
		reviewRepo:   repository.NewReviewRepository(gdb),
		notification: repository.NewNotificationRepository(gdb),
	}
	for _, o := range opts {
		o(e)
	}
	e.ledger = NewLedgerService(gdb, e.userRepo, e.entryRepo)
	e.notify = NewNotificationService(e.notification)
	e.referrals = NewReferralService(e.ledger, e.userRepo, e.entryRepo, e.notify, decimal.NewFromInt(20))
	e.rewards = NewRewardService(e.prices, e.ledger, e.userRepo, e.entryRepo, e.listingRepo, e.requestRepo, e.reviewRepo).(*rewardService)
	e.charges = NewChargeService(e.prices, e.ledger, e.referrals.OnCharge)
	e.payments = NewPaymentService(e.ledger, e.userRepo, e.paymentRepo, e.merchant, archive.Nop{}, e.notify, "UAH",
		PaymentLimits{Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(10000)}).(*paymentService)
	e.requests = NewRequestService(e.requestRepo, e.charges, e.rewards, e.notify)
	e.listings = NewListingService(e.listingRepo, e.charges, e.rewards).(*listingService)
	e.reviews = NewReviewService(e.reviewRepo, e.requestRepo, e.rewards)
	e.users = NewUserService(e.userRepo, e.referrals, e.rewards)
	return e
}

func (e *testEnv) setNow(now time.Time) {
	clock := func() time.Time { return now }
	e.rewards.now = clock
	e.payments.now = clock
	e.listings.now = clock
}

func (e *testEnv) callback(t *testing.T, ref, amount, status string) []byte {
	t.Helper()
	cb := &wayforpay.Callback{
		MerchantAccount:   testMerchant,
		OrderReference:    ref,
		Amount:            json.Number(amount),
		Currency:          "UAH",
		AuthCode:          "541963",
		CardPan:           "41****8217",
		TransactionStatus: status,
		ReasonCode:        json.Number("1100"),
	}
	e.merchant.SignCallback(cb)
	raw, err := json.Marshal(cb)
	require.NoError(t, err)
	return raw
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}
