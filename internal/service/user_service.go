package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

type RegisterInput struct {
	DisplayName  string
	ReferralCode string
}

type UserService interface {
	Register(ctx context.Context, uid string, in RegisterInput) (*model.User, bool, error)
	Get(ctx context.Context, uid string) (*model.User, error)
	UpdateProfile(ctx context.Context, uid string, f repository.ProfileFields) (*model.User, *GrantResult, error)
	CheckIn(ctx context.Context, uid string) (*GrantResult, error)
}

type userService struct {
	users     repository.UserRepository
	referrals ReferralService
	rewards   RewardService
}

func NewUserService(users repository.UserRepository, referrals ReferralService, rewards RewardService) UserService {
	return &userService{users: users, referrals: referrals, rewards: rewards}
}

// Register is idempotent. The referral code only counts on the call that
// creates the account.
func (s *userService) Register(ctx context.Context, uid string, in RegisterInput) (*model.User, bool, error) {
	if uid == "" {
		return nil, false, ErrUserNotFound
	}
	name := strings.TrimSpace(in.DisplayName)
	if utf8.RuneCountInString(name) > 120 {
		return nil, false, invalid("displayName", "must be at most 120 characters")
	}
	_, created, err := s.users.FirstOrCreate(ctx, uid, name)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.referrals.RecordReferral(ctx, in.ReferralCode, uid)
	}
	if _, err := s.referrals.EnsureReferralCode(ctx, uid); err != nil {
		logBestEffort(ctx, "ensure referral code", err)
	}
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

func (s *userService) Get(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func validateProfile(f repository.ProfileFields) error {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"displayName", f.DisplayName, 120},
		{"phone", f.Phone, 32},
		{"city", f.City, 120},
		{"avatarUrl", f.AvatarURL, 512},
		{"bio", f.Bio, 2000},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return invalid(l.field, "is too long")
		}
	}
	if strings.TrimSpace(f.DisplayName) == "" {
		return invalid("displayName", "is required")
	}
	return nil
}

// UpdateProfile stores the profile and grants PROFILE_COMPLETE when every
// field is filled. The returned grant is nil when nothing was credited.
func (s *userService) UpdateProfile(ctx context.Context, uid string, f repository.ProfileFields) (*model.User, *GrantResult, error) {
	f = repository.ProfileFields{
		DisplayName: strings.TrimSpace(f.DisplayName),
		Phone:       strings.TrimSpace(f.Phone),
		City:        strings.TrimSpace(f.City),
		Bio:         strings.TrimSpace(f.Bio),
		AvatarURL:   strings.TrimSpace(f.AvatarURL),
	}
	if err := validateProfile(f); err != nil {
		return nil, nil, err
	}
	if err := s.users.UpdateProfile(ctx, uid, f); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	var grant *GrantResult
	res, err := s.rewards.Grant(ctx, uid, pricing.ActionProfileComplete)
	logBestEffort(ctx, "grant PROFILE_COMPLETE", err)
	if err == nil && res.Granted {
		grant = res
	}
	u, err := s.Get(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	return u, grant, nil
}

func (s *userService) CheckIn(ctx context.Context, uid string) (*GrantResult, error) {
	return s.rewards.Grant(ctx, uid, pricing.ActionDailyLogin)
}
