package service

import (
	"context"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/repository"
)

const (
	NotificationTopUpApproved = "topup_approved"
	NotificationTopUpDeclined = "topup_declined"
	NotificationReferralBonus = "referral_bonus"
	NotificationRewardGranted = "reward_granted"
	NotificationRequestUpdate = "request_update"
)

type NotificationService interface {
	Notify(ctx context.Context, userUID, typ, title, body string, entryID, paymentID *uint64)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
	MarkByPayment(ctx context.Context, userUID string, paymentID uint64) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, entryID, paymentID *uint64) {
	if userUID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserUID:       userUID,
		Type:          typ,
		Title:         title,
		Body:          body,
		LedgerEntryID: entryID,
		PaymentID:     paymentID,
	}
	logBestEffort(ctx, "notify "+typ, s.repo.Create(ctx, n))
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

func (s *notificationService) MarkByPayment(ctx context.Context, userUID string, paymentID uint64) error {
	if userUID == "" || paymentID == 0 {
		return nil
	}
	return s.repo.MarkByPayment(ctx, userUID, paymentID)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
