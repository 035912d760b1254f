package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/testutil"
)

type failingBoostRepo struct {
	repository.ListingRepository
}

func (failingBoostRepo) SetBoostedUntil(context.Context, uint64, time.Time) error {
	return errors.New("update failed")
}

type failingListRepo struct {
	repository.ListingRepository
}

func (failingListRepo) List(context.Context, repository.ListingFilter, int, int) ([]model.ServiceListing, int64, error) {
	return nil, 0, errors.New("query failed")
}

var tiler = CreateListingInput{
	Title:       "Укладання плитки",
	Description: "Ванні кімнати під ключ",
	Category:    "repair",
	City:        "Одеса",
	PriceUAH:    800,
}

func TestCreateListingGrantsFirstService(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "pro", 0)

	l, err := e.listings.Create(ctx, "pro", tiler)
	require.NoError(t, err)
	require.NotZero(t, l.ID)
	_, err = e.listings.Create(ctx, "pro", tiler)
	require.NoError(t, err)

	requireDecimal(t, 15, testutil.Balance(t, e.db, "pro"))
	require.Equal(t, 1, countReason(t, e, "pro", pricing.ActionFirstService.Reason()))

	_, err = e.listings.Create(ctx, "pro", CreateListingInput{Title: "ok title"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestBoostListing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "pro", 100)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	e.setNow(now)

	l, err := e.listings.Create(ctx, "pro", tiler)
	require.NoError(t, err)

	_, _, err = e.listings.Boost(ctx, "stranger", l.ID)
	require.ErrorIs(t, err, ErrForbidden)

	boosted, receipt, err := e.listings.Boost(ctx, "pro", l.ID)
	require.NoError(t, err)
	requireDecimal(t, 25, receipt.AmountCharged)
	require.True(t, boosted.BoostedUntil.Equal(now.Add(7*24*time.Hour)))

	boosted, _, err = e.listings.Boost(ctx, "pro", l.ID)
	require.NoError(t, err)
	require.True(t, boosted.BoostedUntil.Equal(now.Add(14*24*time.Hour)))

	// 100 + 15 (FIRST_SERVICE) - 2*25
	requireDecimal(t, 65, testutil.Balance(t, e.db, "pro"))

	_, _, err = e.listings.Boost(ctx, "pro", 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBoostRefundsOnFailure(t *testing.T) {
	e := newTestEnv(t, withListingRepo(func(r repository.ListingRepository) repository.ListingRepository {
		return failingBoostRepo{r}
	}))
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "pro", 100)

	l, err := e.listings.Create(ctx, "pro", tiler)
	require.NoError(t, err)
	_, _, err = e.listings.Boost(ctx, "pro", l.ID)
	require.EqualError(t, err, "update failed")

	requireDecimal(t, 115, testutil.Balance(t, e.db, "pro"))
	require.Equal(t, 1, countReason(t, e, "pro", model.ReasonRefundBoostFailure))
	testutil.RequireConsistent(t, e.db, "pro")
}

func TestPartnerSearch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "pro", 0)
	testutil.SeedUser(t, e.db, "client", 100)

	_, err := e.listings.Create(ctx, "pro", tiler)
	require.NoError(t, err)

	_, _, err = e.listings.Search(ctx, "client", repository.ListingFilter{City: "Одеса"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	requireDecimal(t, 100, testutil.Balance(t, e.db, "client"))

	found, receipt, err := e.listings.Search(ctx, "client", repository.ListingFilter{Query: "плитк"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	requireDecimal(t, 30, receipt.AmountCharged)
	requireDecimal(t, 70, testutil.Balance(t, e.db, "client"))
}

func TestPartnerSearchRefundsOnQueryFailure(t *testing.T) {
	e := newTestEnv(t, withListingRepo(func(r repository.ListingRepository) repository.ListingRepository {
		return failingListRepo{r}
	}))
	testutil.SeedUser(t, e.db, "client", 100)

	_, _, err := e.listings.Search(context.Background(), "client", repository.ListingFilter{Category: "repair"})
	require.EqualError(t, err, "query failed")
	requireDecimal(t, 100, testutil.Balance(t, e.db, "client"))
	require.Equal(t, 1, countReason(t, e, "client", model.ReasonRefundSearchFailure))
}
