package repository

import (
	"context"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *model.Review) error
	ExistsForRequest(ctx context.Context, requestID uint64, reviewerUID string) (bool, error)
	CountByReviewer(ctx context.Context, reviewerUID string) (int64, error)
	ListByTarget(ctx context.Context, targetUID string, limit int) ([]model.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepository) ExistsForRequest(ctx context.Context, requestID uint64, reviewerUID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("request_id = ? AND reviewer_uid = ?", requestID, reviewerUID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *reviewRepository) CountByReviewer(ctx context.Context, reviewerUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("reviewer_uid = ?", reviewerUID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *reviewRepository) ListByTarget(ctx context.Context, targetUID string, limit int) ([]model.Review, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var list []model.Review
	if err := r.db.WithContext(ctx).
		Where("target_uid = ?", targetUID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
