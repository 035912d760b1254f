package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/reqctx"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"gorm.io/gorm"
)

type EarningProgress struct {
	Action          pricing.Action  `json:"action"`
	Description     string          `json:"description"`
	RewardAmount    decimal.Decimal `json:"rewardAmount"`
	Completed       bool            `json:"completed"`
	Rewarded        bool            `json:"rewarded"`
	IsRepeatable    bool            `json:"isRepeatable"`
	CurrentProgress int64           `json:"currentProgress"`
	ProgressTarget  int64           `json:"progressTarget"`
	MissingFields   []string        `json:"missingFields,omitempty"`
}

// Occurrence identifies one real-world event behind a repeatable reward.
// Key defaults to "RelatedType:RelatedID".
type Occurrence struct {
	RelatedType string
	RelatedID   string
	Key         string
}

type GrantResult struct {
	Action       pricing.Action  `json:"action"`
	Granted      bool            `json:"granted"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	EntryID      uint64          `json:"entryId,omitempty"`
}

type RewardService interface {
	Progress(ctx context.Context, uid string) []EarningProgress
	Grant(ctx context.Context, uid string, action pricing.Action) (*GrantResult, error)
	GrantOccurrence(ctx context.Context, uid string, action pricing.Action, occ Occurrence) (*GrantResult, error)
}

type rewardService struct {
	prices   *pricing.Table
	ledger   LedgerService
	users    repository.UserRepository
	entries  repository.LedgerRepository
	listings repository.ListingRepository
	requests repository.RequestRepository
	reviews  repository.ReviewRepository
	now      func() time.Time
}

func NewRewardService(
	prices *pricing.Table,
	ledger LedgerService,
	users repository.UserRepository,
	entries repository.LedgerRepository,
	listings repository.ListingRepository,
	requests repository.RequestRepository,
	reviews repository.ReviewRepository,
) RewardService {
	return &rewardService{
		prices:   prices,
		ledger:   ledger,
		users:    users,
		entries:  entries,
		listings: listings,
		requests: requests,
		reviews:  reviews,
		now:      time.Now,
	}
}

var kyiv = loadKyiv()

func loadKyiv() *time.Location {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

func (s *rewardService) today() string {
	return s.now().In(kyiv).Format("2006-01-02")
}

var errAlreadyGranted = errors.New("already granted")

func (s *rewardService) Grant(ctx context.Context, uid string, action pricing.Action) (*GrantResult, error) {
	return s.GrantOccurrence(ctx, uid, action, Occurrence{})
}

// GrantOccurrence credits the reward for action at most once per one-time
// action, or once per occurrence for repeatable ones. Replays return
// Granted=false without error.
func (s *rewardService) GrantOccurrence(ctx context.Context, uid string, action pricing.Action, occ Occurrence) (*GrantResult, error) {
	earning, err := s.prices.Earning(action)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, ErrUserNotFound
	}
	key, occ, err := s.idempotencyKey(uid, earning, occ)
	if err != nil {
		return nil, err
	}
	ok, err := s.eligible(ctx, uid, action)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotEligible
	}

	res := &GrantResult{Action: action, Amount: decimal.Zero}
	err = s.ledger.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := s.users.WithTx(tx).LockForUpdate(ctx, uid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		res.BalanceAfter = u.Balance
		if !earning.Repeatable {
			n, err := s.entries.WithTx(tx).CountByReason(ctx, uid, action.Reason())
			if err != nil {
				return err
			}
			if n > 0 {
				return errAlreadyGranted
			}
		}
		entry, err := s.ledger.PostTx(ctx, tx, Posting{
			UserUID:        uid,
			Amount:         earning.Amount,
			Kind:           model.EntryKindCredit,
			Reason:         action.Reason(),
			RelatedType:    occ.RelatedType,
			RelatedID:      occ.RelatedID,
			Description:    earning.Description,
			IdempotencyKey: key,
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyPosted) {
				return errAlreadyGranted
			}
			return err
		}
		res.Granted = true
		res.Amount = entry.Amount
		res.BalanceAfter = entry.BalanceAfter
		res.EntryID = entry.ID
		return nil
	})
	if errors.Is(err, errAlreadyGranted) {
		return &GrantResult{Action: action, Amount: decimal.Zero, BalanceAfter: res.BalanceAfter}, nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("%sgranted %s +%s to %s", reqctx.LogPrefix(ctx), action, res.Amount, uid)
	return res, nil
}

func (s *rewardService) idempotencyKey(uid string, e pricing.Earning, occ Occurrence) (string, Occurrence, error) {
	base := "earn:" + uid + ":" + string(e.Action)
	if !e.Repeatable {
		return base, occ, nil
	}
	if e.Action == pricing.ActionDailyLogin && occ.Key == "" && occ.RelatedID == "" {
		occ = Occurrence{RelatedType: "day", RelatedID: s.today()}
	}
	k := occ.Key
	if k == "" {
		if occ.RelatedID == "" {
			return "", occ, ErrNotEligible
		}
		k = occ.RelatedType + ":" + occ.RelatedID
	}
	return base + ":" + k, occ, nil
}

func (s *rewardService) eligible(ctx context.Context, uid string, action pricing.Action) (bool, error) {
	switch action {
	case pricing.ActionProfileComplete:
		u, err := s.users.FindByUID(ctx, uid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrUserNotFound
			}
			return false, err
		}
		return len(missingProfileFields(u)) == 0, nil
	case pricing.ActionFirstService:
		n, err := s.listings.CountByProvider(ctx, uid)
		return n > 0, err
	case pricing.ActionFirstRequest:
		n, err := s.requests.CountByAuthor(ctx, uid)
		return n > 0, err
	}
	return true, nil
}

const profileFieldCount = 5

func missingProfileFields(u *model.User) []string {
	var missing []string
	if u.DisplayName == "" {
		missing = append(missing, "displayName")
	}
	if u.Phone == "" {
		missing = append(missing, "phone")
	}
	if u.City == "" {
		missing = append(missing, "city")
	}
	if u.Bio == "" {
		missing = append(missing, "bio")
	}
	if u.AvatarURL == "" {
		missing = append(missing, "avatarUrl")
	}
	return missing
}

// Progress never fails; unreadable data yields the fallback projection.
func (s *rewardService) Progress(ctx context.Context, uid string) []EarningProgress {
	list, err := s.progress(ctx, uid)
	if err != nil {
		log.Printf("%searnings progress for %s degraded: %v", reqctx.LogPrefix(ctx), uid, err)
		return s.fallback()
	}
	return list
}

func (s *rewardService) progress(ctx context.Context, uid string) ([]EarningProgress, error) {
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]EarningProgress, 0, len(s.prices.EarningCatalog()))
	for _, e := range s.prices.EarningCatalog() {
		p := baseProgress(e)
		rewarded, err := s.entries.CountByReason(ctx, uid, e.Action.Reason())
		if err != nil {
			return nil, err
		}
		p.Rewarded = rewarded > 0

		var n int64
		switch e.Action {
		case pricing.ActionProfileComplete:
			p.MissingFields = missingProfileFields(u)
			p.CurrentProgress = int64(profileFieldCount - len(p.MissingFields))
			p.Completed = len(p.MissingFields) == 0
			out = append(out, p)
			continue
		case pricing.ActionFirstService:
			n, err = s.listings.CountByProvider(ctx, uid)
		case pricing.ActionFirstRequest:
			n, err = s.requests.CountByAuthor(ctx, uid)
		case pricing.ActionDailyLogin:
			var done bool
			done, err = s.entries.ExistsByKey(ctx, "earn:"+uid+":"+string(e.Action)+":day:"+s.today())
			if done {
				n = 1
			}
			p.Rewarded = done
		case pricing.ActionLeaveReview:
			n, err = s.reviews.CountByReviewer(ctx, uid)
		case pricing.ActionCompleteService:
			n, err = s.requests.CountCompletedByProvider(ctx, uid)
		}
		if err != nil {
			return nil, err
		}
		p.Completed = n > 0
		p.CurrentProgress = n
		if !e.Repeatable && n > p.ProgressTarget {
			p.CurrentProgress = p.ProgressTarget
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *rewardService) fallback() []EarningProgress {
	cat := s.prices.EarningCatalog()
	out := make([]EarningProgress, 0, len(cat))
	for _, e := range cat {
		out = append(out, baseProgress(e))
	}
	return out
}

func baseProgress(e pricing.Earning) EarningProgress {
	target := int64(1)
	if e.Action == pricing.ActionProfileComplete {
		target = profileFieldCount
	}
	return EarningProgress{
		Action:         e.Action,
		Description:    e.Description,
		RewardAmount:   e.Amount,
		IsRepeatable:   e.Repeatable,
		ProgressTarget: target,
	}
}
