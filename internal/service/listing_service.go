package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	boostDuration      = 7 * 24 * time.Hour
	partnerSearchLimit = 20
)

type CreateListingInput struct {
	Title       string
	Description string
	Category    string
	City        string
	PriceUAH    uint
}

type ListingService interface {
	Create(ctx context.Context, uid string, in CreateListingInput) (*model.ServiceListing, error)
	Get(ctx context.Context, id uint64) (*model.ServiceListing, error)
	List(ctx context.Context, f repository.ListingFilter, limit, offset int) ([]model.ServiceListing, int64, error)
	Boost(ctx context.Context, uid string, id uint64) (*model.ServiceListing, *ChargeReceipt, error)
	Search(ctx context.Context, uid string, f repository.ListingFilter) ([]model.ServiceListing, *ChargeReceipt, error)
}

type listingService struct {
	listings repository.ListingRepository
	charges  ChargeService
	rewards  RewardService
	now      func() time.Time
}

func NewListingService(listings repository.ListingRepository, charges ChargeService, rewards RewardService) ListingService {
	return &listingService{listings: listings, charges: charges, rewards: rewards, now: time.Now}
}

func (s *listingService) Create(ctx context.Context, uid string, in CreateListingInput) (*model.ServiceListing, error) {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < 3 || n > 120 {
		return nil, invalid("title", "must be 3-120 characters")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, invalid("description", "is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, invalid("category", "is required")
	}
	l := &model.ServiceListing{
		ProviderUID: uid,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		City:        strings.TrimSpace(in.City),
		PriceUAH:    in.PriceUAH,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	_, err := s.rewards.Grant(ctx, uid, pricing.ActionFirstService)
	logBestEffort(ctx, "grant FIRST_SERVICE", err)
	return l, nil
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.ServiceListing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) List(ctx context.Context, f repository.ListingFilter, limit, offset int) ([]model.ServiceListing, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.listings.List(ctx, f, limit, offset)
}

// Boost lifts the listing to the top for boostDuration, stacking on any
// boost still running.
func (s *listingService) Boost(ctx context.Context, uid string, id uint64) (*model.ServiceListing, *ChargeReceipt, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if l.ProviderUID != uid {
		return nil, nil, ErrForbidden
	}
	receipt, err := s.charges.Charge(ctx, ChargeInput{
		UserUID:     uid,
		Action:      pricing.ActionServiceBoost,
		RelatedType: "service_listing",
		RelatedID:   strconv.FormatUint(id, 10),
	})
	if err != nil {
		return nil, nil, err
	}
	start := s.now()
	if l.BoostedUntil != nil && l.BoostedUntil.After(start) {
		start = *l.BoostedUntil
	}
	until := start.Add(boostDuration)
	if err := s.listings.SetBoostedUntil(ctx, id, until); err != nil {
		s.charges.Refund(ctx, receipt, model.ReasonRefundBoostFailure, "Повернення: підняття не застосовано")
		return nil, nil, err
	}
	s.charges.Commit(ctx, receipt)
	l.BoostedUntil = &until
	return l, receipt, nil
}

// Search is the paid partner search over listings.
func (s *listingService) Search(ctx context.Context, uid string, f repository.ListingFilter) ([]model.ServiceListing, *ChargeReceipt, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.City = strings.TrimSpace(f.City)
	f.Query = strings.TrimSpace(f.Query)
	if f.Category == "" && f.Query == "" {
		return nil, nil, invalid("query", "category or query is required")
	}
	receipt, err := s.charges.Charge(ctx, ChargeInput{
		UserUID:     uid,
		Action:      pricing.ActionPartnerSearch,
		RelatedType: "partner_search",
	})
	if err != nil {
		return nil, nil, err
	}
	list, _, err := s.listings.List(ctx, f, partnerSearchLimit, 0)
	if err != nil {
		s.charges.Refund(ctx, receipt, model.ReasonRefundSearchFailure, "Повернення: пошук не виконано")
		return nil, nil, err
	}
	s.charges.Commit(ctx, receipt)
	return list, receipt, nil
}
