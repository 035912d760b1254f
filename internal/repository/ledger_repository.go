package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/gorm"
)

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, e *model.LedgerEntry) error
	ExistsByKey(ctx context.Context, key string) (bool, error)
	Sum(ctx context.Context, uid string) (decimal.Decimal, error)
	SumByReason(ctx context.Context, uid string, reason model.Reason) (decimal.Decimal, error)
	CountByReason(ctx context.Context, uid string, reason model.Reason) (int64, error)
	CountRelatedByReason(ctx context.Context, uid string, reason model.Reason) (int64, error)
	ListByUser(ctx context.Context, uid string, limit, offset int) ([]model.LedgerEntry, int64, error)
	WithTx(tx *gorm.DB) LedgerRepository
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, e *model.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ledgerRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("idempotency_key = ?", key).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *ledgerRepository) Sum(ctx context.Context, uid string) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Where("user_uid = ?", uid))
}

func (r *ledgerRepository) SumByReason(ctx context.Context, uid string, reason model.Reason) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Where("user_uid = ? AND reason = ?", uid, reason))
}

func (r *ledgerRepository) sum(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := q.Model(&model.LedgerEntry{}).Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *ledgerRepository) CountByReason(ctx context.Context, uid string, reason model.Reason) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("user_uid = ? AND reason = ?", uid, reason).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

// CountRelatedByReason counts distinct related entities credited to uid
// under reason, e.g. invitees that already produced a referral bonus.
func (r *ledgerRepository) CountRelatedByReason(ctx context.Context, uid string, reason model.Reason) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("user_uid = ? AND reason = ? AND related_id IS NOT NULL", uid, reason).
		Distinct("related_id").
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, uid string, limit, offset int) ([]model.LedgerEntry, int64, error) {
	var (
		list  []model.LedgerEntry
		total int64
	)
	if err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("user_uid = ?", uid).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", uid).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}
