package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/testutil"
)

func TestEnsureReferralCodeStable(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "a", 0)

	code, err := e.referrals.EnsureReferralCode(ctx, "a")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "SV"))
	require.Len(t, code, 10)
	require.Equal(t, strings.ToUpper(code), code)

	again, err := e.referrals.EnsureReferralCode(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, code, again)

	_, err = e.referrals.EnsureReferralCode(ctx, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterWithReferralCode(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	inviter, _, err := e.users.Register(ctx, "a", RegisterInput{DisplayName: "Андрій"})
	require.NoError(t, err)
	require.NotNil(t, inviter.ReferralCode)

	invitee, created, err := e.users.Register(ctx, "b", RegisterInput{DisplayName: "Богдана", ReferralCode: strings.ToLower(*inviter.ReferralCode)})
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, invitee.ReferredByUID)
	require.Equal(t, "a", *invitee.ReferredByUID)

	st, err := e.referrals.Stats(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, st.TotalInvited)
	require.EqualValues(t, 0, st.ActiveReferrals)
	require.True(t, st.TotalEarnedFromReferrals.IsZero())
	require.Equal(t, *inviter.ReferralCode, st.Code)
	requireDecimal(t, 0, testutil.Balance(t, e.db, "a"))

	_, created, err = e.users.Register(ctx, "b", RegisterInput{ReferralCode: *inviter.ReferralCode})
	require.NoError(t, err)
	require.False(t, created)
}

func TestRegisterWithBadCodeStillSucceeds(t *testing.T) {
	e := newTestEnv(t)
	u, created, err := e.users.Register(context.Background(), "b", RegisterInput{ReferralCode: "SVNOPE0000"})
	require.NoError(t, err)
	require.True(t, created)
	require.Nil(t, u.ReferredByUID)
}

func TestRecordReferralRejectsSelfAndCycles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "a", 0)
	testutil.SeedUser(t, e.db, "b", 0)
	testutil.SeedUser(t, e.db, "c", 0)

	codeA, err := e.referrals.EnsureReferralCode(ctx, "a")
	require.NoError(t, err)
	codeB, err := e.referrals.EnsureReferralCode(ctx, "b")
	require.NoError(t, err)
	codeC, err := e.referrals.EnsureReferralCode(ctx, "c")
	require.NoError(t, err)

	require.False(t, e.referrals.RecordReferral(ctx, codeA, "a"))
	require.True(t, e.referrals.RecordReferral(ctx, codeA, "b"))
	require.True(t, e.referrals.RecordReferral(ctx, codeB, "c"))
	// a -> b -> c; c inviting a would close the loop.
	require.False(t, e.referrals.RecordReferral(ctx, codeC, "a"))
	// b already has an inviter.
	require.False(t, e.referrals.RecordReferral(ctx, codeC, "b"))
	require.False(t, e.referrals.RecordReferral(ctx, "", "c"))

	u, err := e.userRepo.FindByUID(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, u.ReferredByUID)
}

func TestReferralBonusOnFirstPaidAction(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	inviter, _, err := e.users.Register(ctx, "a", RegisterInput{})
	require.NoError(t, err)
	_, _, err = e.users.Register(ctx, "b", RegisterInput{ReferralCode: *inviter.ReferralCode})
	require.NoError(t, err)
	_, err = e.ledger.AdminGrant(ctx, "b", dec(100), "seed", "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, err = e.listings.Search(ctx, "b", repository.ListingFilter{Query: "плитка"})
		require.NoError(t, err)
	}

	requireDecimal(t, 20, testutil.Balance(t, e.db, "a"))
	entries := testutil.Entries(t, e.db, "a")
	require.Len(t, entries, 1)
	require.Equal(t, model.ReasonReferralInviter, entries[0].Reason)
	require.Equal(t, "b", *entries[0].RelatedID)

	st, err := e.referrals.Stats(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, st.ActiveReferrals)
	requireDecimal(t, 20, st.TotalEarnedFromReferrals)

	list, unread, err := e.notify.List(ctx, "a", true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.EqualValues(t, 1, unread)
	require.Equal(t, NotificationReferralBonus, list[0].Type)
}

func TestReferralBonusSkipsRefundedActions(t *testing.T) {
	cases := []struct {
		name string
		opt  envOption
		act  func(ctx context.Context, e *testEnv) error
	}{
		{
			name: "request insert fails",
			opt: withRequestRepo(func(r repository.RequestRepository) repository.RequestRepository {
				return failingRequestRepo{r}
			}),
			act: func(ctx context.Context, e *testEnv) error {
				_, _, err := e.requests.Create(ctx, "b", plumbing)
				return err
			},
		},
		{
			name: "boost update fails",
			opt: withListingRepo(func(r repository.ListingRepository) repository.ListingRepository {
				return failingBoostRepo{r}
			}),
			act: func(ctx context.Context, e *testEnv) error {
				l, err := e.listings.Create(ctx, "b", tiler)
				if err != nil {
					return err
				}
				_, _, err = e.listings.Boost(ctx, "b", l.ID)
				return err
			},
		},
		{
			name: "search query fails",
			opt: withListingRepo(func(r repository.ListingRepository) repository.ListingRepository {
				return failingListRepo{r}
			}),
			act: func(ctx context.Context, e *testEnv) error {
				_, _, err := e.listings.Search(ctx, "b", repository.ListingFilter{Category: "repair"})
				return err
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, tc.opt)
			ctx := context.Background()

			inviter, _, err := e.users.Register(ctx, "a", RegisterInput{})
			require.NoError(t, err)
			_, _, err = e.users.Register(ctx, "b", RegisterInput{ReferralCode: *inviter.ReferralCode})
			require.NoError(t, err)
			_, err = e.ledger.AdminGrant(ctx, "b", dec(100), "seed", "")
			require.NoError(t, err)

			require.Error(t, tc.act(ctx, e))

			requireDecimal(t, 0, testutil.Balance(t, e.db, "a"))
			require.Empty(t, testutil.Entries(t, e.db, "a"))
			testutil.RequireConsistent(t, e.db, "b")

			_, err = e.charges.Charge(ctx, ChargeInput{UserUID: "b", Action: pricing.ActionContactReveal})
			require.NoError(t, err)
			requireDecimal(t, 0, testutil.Balance(t, e.db, "a"))
		})
	}
}

func TestReferralBonusAfterRefundedAttempt(t *testing.T) {
	e := newTestEnv(t, withRequestRepo(func(r repository.RequestRepository) repository.RequestRepository {
		return failingRequestRepo{r}
	}))
	ctx := context.Background()

	inviter, _, err := e.users.Register(ctx, "a", RegisterInput{})
	require.NoError(t, err)
	_, _, err = e.users.Register(ctx, "b", RegisterInput{ReferralCode: *inviter.ReferralCode})
	require.NoError(t, err)
	_, err = e.ledger.AdminGrant(ctx, "b", dec(100), "seed", "")
	require.NoError(t, err)

	_, _, err = e.requests.Create(ctx, "b", plumbing)
	require.Error(t, err)
	requireDecimal(t, 100, testutil.Balance(t, e.db, "b"))
	requireDecimal(t, 0, testutil.Balance(t, e.db, "a"))

	_, _, err = e.listings.Search(ctx, "b", repository.ListingFilter{Category: "plumbing"})
	require.NoError(t, err)
	requireDecimal(t, 20, testutil.Balance(t, e.db, "a"))
	testutil.RequireConsistent(t, e.db, "a")
}

func TestReferralStatsWithoutLedger(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "a", 0)
	testutil.SeedUser(t, e.db, "b", 0)
	code, err := e.referrals.EnsureReferralCode(ctx, "a")
	require.NoError(t, err)
	require.True(t, e.referrals.RecordReferral(ctx, code, "b"))

	require.NoError(t, e.db.Migrator().DropTable(&model.LedgerEntry{}))

	st, err := e.referrals.Stats(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 1, st.TotalInvited)
	require.EqualValues(t, 0, st.ActiveReferrals)
	require.True(t, st.TotalEarnedFromReferrals.IsZero())
}
