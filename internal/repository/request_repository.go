package repository

import (
	"context"
	"time"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/gorm"
)

type RequestRepository interface {
	Create(ctx context.Context, r *model.ServiceRequest) error
	FindByID(ctx context.Context, id uint64) (*model.ServiceRequest, error)
	AcceptIfOpen(ctx context.Context, id uint64, providerUID string) (int64, error)
	CompleteIfInProgress(ctx context.Context, id uint64, authorUID string) (int64, error)
	CancelIfOpen(ctx context.Context, id uint64, authorUID string) (int64, error)
	ListByAuthor(ctx context.Context, authorUID string) ([]model.ServiceRequest, error)
	ListByProvider(ctx context.Context, providerUID string) ([]model.ServiceRequest, error)
	CountByAuthor(ctx context.Context, authorUID string) (int64, error)
	CountCompletedByProvider(ctx context.Context, providerUID string) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, sr *model.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(sr).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	var sr model.ServiceRequest
	if err := r.db.WithContext(ctx).First(&sr, id).Error; err != nil {
		return nil, err
	}
	return &sr, nil
}

func (r *requestRepository) AcceptIfOpen(ctx context.Context, id uint64, providerUID string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("id = ? AND status = ? AND author_uid <> ?", id, model.RequestStatusOpen, providerUID).
		Updates(map[string]interface{}{
			"status":       model.RequestStatusInProgress,
			"provider_uid": providerUID,
			"accepted_at":  now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *requestRepository) CompleteIfInProgress(ctx context.Context, id uint64, authorUID string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("id = ? AND author_uid = ? AND status = ?", id, authorUID, model.RequestStatusInProgress).
		Updates(map[string]interface{}{
			"status":       model.RequestStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *requestRepository) CancelIfOpen(ctx context.Context, id uint64, authorUID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("id = ? AND author_uid = ? AND status = ?", id, authorUID, model.RequestStatusOpen).
		Update("status", model.RequestStatusCanceled)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *requestRepository) ListByAuthor(ctx context.Context, authorUID string) ([]model.ServiceRequest, error) {
	var list []model.ServiceRequest
	if err := r.db.WithContext(ctx).
		Where("author_uid = ?", authorUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *requestRepository) ListByProvider(ctx context.Context, providerUID string) ([]model.ServiceRequest, error) {
	var list []model.ServiceRequest
	if err := r.db.WithContext(ctx).
		Where("provider_uid = ?", providerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *requestRepository) CountByAuthor(ctx context.Context, authorUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("author_uid = ?", authorUID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *requestRepository) CountCompletedByProvider(ctx context.Context, providerUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("provider_uid = ? AND status = ?", providerUID, model.RequestStatusCompleted).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
