package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

type ReviewService interface {
	Create(ctx context.Context, uid string, requestID uint64, rating int, body string) (*model.Review, error)
	ListForUser(ctx context.Context, targetUID string, limit int) ([]model.Review, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	requests repository.RequestRepository
	rewards  RewardService
}

func NewReviewService(reviews repository.ReviewRepository, requests repository.RequestRepository, rewards RewardService) ReviewService {
	return &reviewService{reviews: reviews, requests: requests, rewards: rewards}
}

// Create lets the author of a completed request review its provider once.
func (s *reviewService) Create(ctx context.Context, uid string, requestID uint64, rating int, body string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	sr, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sr.AuthorUID != uid {
		return nil, ErrForbidden
	}
	if sr.Status != model.RequestStatusCompleted || sr.ProviderUID == nil {
		return nil, ErrInvalidState
	}
	exists, err := s.reviews.ExistsForRequest(ctx, requestID, uid)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}
	rv := &model.Review{
		RequestID:   requestID,
		ReviewerUID: uid,
		TargetUID:   *sr.ProviderUID,
		Rating:      uint8(rating),
		Body:        strings.TrimSpace(body),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	_, err = s.rewards.GrantOccurrence(ctx, uid, pricing.ActionLeaveReview, Occurrence{
		RelatedType: "review",
		RelatedID:   strconv.FormatUint(rv.ID, 10),
	})
	logBestEffort(ctx, "grant LEAVE_REVIEW", err)
	return rv, nil
}

func (s *reviewService) ListForUser(ctx context.Context, targetUID string, limit int) ([]model.Review, error) {
	return s.reviews.ListByTarget(ctx, targetUID, limit)
}
