package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

type CreateRequestInput struct {
	Title       string
	Description string
	Category    string
	City        string
	Promos      []pricing.Promo
}

type RequestService interface {
	Create(ctx context.Context, uid string, in CreateRequestInput) (*model.ServiceRequest, *ChargeReceipt, error)
	Get(ctx context.Context, id uint64) (*model.ServiceRequest, error)
	ListMine(ctx context.Context, uid string) ([]model.ServiceRequest, error)
	ListAssigned(ctx context.Context, uid string) ([]model.ServiceRequest, error)
	Accept(ctx context.Context, id uint64, providerUID string) (*model.ServiceRequest, error)
	Complete(ctx context.Context, id uint64, authorUID string) (*model.ServiceRequest, error)
	Cancel(ctx context.Context, id uint64, authorUID string) (*model.ServiceRequest, error)
}

type requestService struct {
	requests repository.RequestRepository
	charges  ChargeService
	rewards  RewardService
	notify   NotificationService
}

func NewRequestService(requests repository.RequestRepository, charges ChargeService, rewards RewardService, notify NotificationService) RequestService {
	return &requestService{requests: requests, charges: charges, rewards: rewards, notify: notify}
}

func validateRequest(in CreateRequestInput) error {
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < 3 || n > 120 {
		return invalid("title", "must be 3-120 characters")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalid("category", "is required")
	}
	return nil
}

// Create charges the publication fee first and refunds it if the request
// cannot be stored.
func (s *requestService) Create(ctx context.Context, uid string, in CreateRequestInput) (*model.ServiceRequest, *ChargeReceipt, error) {
	if err := validateRequest(in); err != nil {
		return nil, nil, err
	}
	title := strings.TrimSpace(in.Title)
	receipt, err := s.charges.Charge(ctx, ChargeInput{
		UserUID:     uid,
		Action:      pricing.ActionRequestPublish,
		Promos:      in.Promos,
		RelatedType: "service_request",
		Description: "Публікація запиту: " + title,
	})
	if err != nil {
		return nil, nil, err
	}

	promos := make([]string, 0, len(in.Promos))
	for _, p := range in.Promos {
		promos = append(promos, string(p))
	}
	sr := &model.ServiceRequest{
		AuthorUID:   uid,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		City:        strings.TrimSpace(in.City),
		Promos:      strings.Join(promos, ","),
		Status:      model.RequestStatusOpen,
		UCMCharged:  receipt.AmountCharged,
	}
	if err := s.requests.Create(ctx, sr); err != nil {
		s.charges.Refund(ctx, receipt, model.ReasonRefundRequestFailure, "Повернення: запит не створено")
		return nil, nil, err
	}
	s.charges.Commit(ctx, receipt)

	_, err = s.rewards.Grant(ctx, uid, pricing.ActionFirstRequest)
	logBestEffort(ctx, "grant FIRST_REQUEST", err)
	return sr, receipt, nil
}

func (s *requestService) Get(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	sr, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sr, nil
}

func (s *requestService) ListMine(ctx context.Context, uid string) ([]model.ServiceRequest, error) {
	return s.requests.ListByAuthor(ctx, uid)
}

func (s *requestService) ListAssigned(ctx context.Context, uid string) ([]model.ServiceRequest, error) {
	return s.requests.ListByProvider(ctx, uid)
}

func (s *requestService) Accept(ctx context.Context, id uint64, providerUID string) (*model.ServiceRequest, error) {
	n, err := s.requests.AcceptIfOpen(ctx, id, providerUID)
	if err != nil {
		return nil, err
	}
	sr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if sr.AuthorUID == providerUID {
			return nil, ErrForbidden
		}
		return nil, ErrInvalidState
	}
	if s.notify != nil {
		s.notify.Notify(ctx, sr.AuthorUID, NotificationRequestUpdate, "Запит прийнято",
			fmt.Sprintf("Виконавець узявся за «%s».", sr.Title), nil, nil)
	}
	return sr, nil
}

func (s *requestService) Complete(ctx context.Context, id uint64, authorUID string) (*model.ServiceRequest, error) {
	n, err := s.requests.CompleteIfInProgress(ctx, id, authorUID)
	if err != nil {
		return nil, err
	}
	sr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if sr.AuthorUID != authorUID {
			return nil, ErrForbidden
		}
		return nil, ErrInvalidState
	}
	if sr.ProviderUID != nil {
		res, err := s.rewards.GrantOccurrence(ctx, *sr.ProviderUID, pricing.ActionCompleteService, Occurrence{
			RelatedType: "service_request",
			RelatedID:   strconv.FormatUint(sr.ID, 10),
		})
		logBestEffort(ctx, "grant COMPLETE_SERVICE", err)
		if err == nil && res.Granted && s.notify != nil {
			s.notify.Notify(ctx, *sr.ProviderUID, NotificationRewardGranted, "Замовлення виконано",
				fmt.Sprintf("Нараховано %s UCM за виконане замовлення.", res.Amount.String()), uint64Ptr(res.EntryID), nil)
		}
	}
	return sr, nil
}

func (s *requestService) Cancel(ctx context.Context, id uint64, authorUID string) (*model.ServiceRequest, error) {
	n, err := s.requests.CancelIfOpen(ctx, id, authorUID)
	if err != nil {
		return nil, err
	}
	sr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if sr.AuthorUID != authorUID {
			return nil, ErrForbidden
		}
		return nil, ErrInvalidState
	}
	return sr, nil
}
