package repository

import (
	"context"
	"time"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByOrderReference(ctx context.Context, ref string) (*model.Payment, error)
	LockByOrderReference(ctx context.Context, ref string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, id uint64, status model.PaymentStatus, raw datatypes.JSON) error
	MarkApprovedIfNot(ctx context.Context, id uint64, raw datatypes.JSON, at time.Time) (int64, error)
	RecordResponse(ctx context.Context, id uint64, raw datatypes.JSON) error
	ListByUser(ctx context.Context, uid string, limit int) ([]model.Payment, error)
	WithTx(tx *gorm.DB) PaymentRepository
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) FindByOrderReference(ctx context.Context, ref string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("order_reference = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) LockByOrderReference(ctx context.Context, ref string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_reference = ?", ref).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStatus never downgrades an approved payment.
func (r *paymentRepository) UpdateStatus(ctx context.Context, id uint64, status model.PaymentStatus, raw datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status <> ?", id, model.PaymentStatusApproved).
		Updates(map[string]interface{}{
			"status":       status,
			"raw_response": raw,
		}).Error
}

// MarkApprovedIfNot flips the payment to approved and reports whether this
// call did it. Exactly one caller per order ever observes 1.
func (r *paymentRepository) MarkApprovedIfNot(ctx context.Context, id uint64, raw datatypes.JSON, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status <> ?", id, model.PaymentStatusApproved).
		Updates(map[string]interface{}{
			"status":       model.PaymentStatusApproved,
			"raw_response": raw,
			"approved_at":  at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *paymentRepository) RecordResponse(ctx context.Context, id uint64, raw datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", id).
		Update("raw_response", raw).Error
}

func (r *paymentRepository) ListByUser(ctx context.Context, uid string, limit int) ([]model.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []model.Payment
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", uid).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}
