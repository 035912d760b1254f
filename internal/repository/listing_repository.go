package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingFilter struct {
	Category string
	City     string
	Query    string
}

type ListingRepository interface {
	Create(ctx context.Context, l *model.ServiceListing) error
	FindByID(ctx context.Context, id uint64) (*model.ServiceListing, error)
	List(ctx context.Context, f ListingFilter, limit, offset int) ([]model.ServiceListing, int64, error)
	CountByProvider(ctx context.Context, providerUID string) (int64, error)
	SetBoostedUntil(ctx context.Context, id uint64, until time.Time) error
}

type listingRepository struct {
	db *gorm.DB
}

var ErrDBNotReady = errors.New("database not initialized")

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *model.ServiceListing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.ServiceListing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.ServiceListing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns boosted listings first, then newest.
func (r *listingRepository) List(ctx context.Context, f ListingFilter, limit, offset int) ([]model.ServiceListing, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		list  []model.ServiceListing
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.ServiceListing{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN boosted_until > ? THEN 0 ELSE 1 END, created_at DESC, id DESC",
			Vars:               []interface{}{time.Now()},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *listingRepository) CountByProvider(ctx context.Context, providerUID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ServiceListing{}).
		Where("provider_uid = ?", providerUID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *listingRepository) SetBoostedUntil(ctx context.Context, id uint64, until time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.ServiceListing{}).
		Where("id = ?", id).
		Update("boosted_until", until)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
