package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientFunds = errors.New("insufficient_funds")

type ProfileFields struct {
	DisplayName string
	Phone       string
	City        string
	Bio         string
	AvatarURL   string
}

type UserRepository interface {
	FirstOrCreate(ctx context.Context, uid, displayName string) (*model.User, bool, error)
	FindByUID(ctx context.Context, uid string) (*model.User, error)
	FindByReferralCode(ctx context.Context, code string) (*model.User, error)
	UpdateProfile(ctx context.Context, uid string, f ProfileFields) error
	AssignReferralCodeIfEmpty(ctx context.Context, uid, code string) (int64, error)
	SetReferrerIfEmpty(ctx context.Context, uid, inviterUID string) (int64, error)
	CountInvitees(ctx context.Context, inviterUID string) (int64, error)
	ListUIDs(ctx context.Context) ([]string, error)
	LockForUpdate(ctx context.Context, uid string) (*model.User, error)
	Debit(ctx context.Context, uid string, amount decimal.Decimal) error
	Credit(ctx context.Context, uid string, amount decimal.Decimal) error
	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FirstOrCreate reports created=true only for the call that inserted the row.
func (r *userRepository) FirstOrCreate(ctx context.Context, uid, displayName string) (*model.User, bool, error) {
	u, err := r.FindByUID(ctx, uid)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	u = &model.User{UID: uid, DisplayName: displayName, Balance: decimal.Zero}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := r.FindByUID(ctx, uid)
			return existing, false, ferr
		}
		return nil, false, err
	}
	return u, true, nil
}

func (r *userRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, uid string, f ProfileFields) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"display_name": f.DisplayName,
			"phone":        f.Phone,
			"city":         f.City,
			"bio":          f.Bio,
			"avatar_url":   f.AvatarURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero for an unchanged row.
		if _, err := r.FindByUID(ctx, uid); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) AssignReferralCodeIfEmpty(ctx context.Context, uid, code string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND (referral_code IS NULL OR referral_code = '')", uid).
		Update("referral_code", code)
	return res.RowsAffected, res.Error
}

func (r *userRepository) SetReferrerIfEmpty(ctx context.Context, uid, inviterUID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND referred_by_uid IS NULL", uid).
		Update("referred_by_uid", inviterUID)
	return res.RowsAffected, res.Error
}

func (r *userRepository) CountInvitees(ctx context.Context, inviterUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("referred_by_uid = ?", inviterUID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *userRepository) ListUIDs(ctx context.Context) ([]string, error) {
	var uids []string
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Order("uid").
		Pluck("uid", &uids).Error; err != nil {
		return nil, err
	}
	return uids, nil
}

// LockForUpdate reads the user row with SELECT ... FOR UPDATE; only
// meaningful inside a transaction.
func (r *userRepository) LockForUpdate(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uid = ?", uid).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Debit decrements the balance in one statement guarded by balance >= amount,
// so concurrent debits can never drive it negative.
func (r *userRepository) Debit(ctx context.Context, uid string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND balance >= ?", uid, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (r *userRepository) Credit(ctx context.Context, uid string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}
