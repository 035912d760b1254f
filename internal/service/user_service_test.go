package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/testutil"
)

func TestUpdateProfileGrantsOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)

	partial := repository.ProfileFields{DisplayName: "  Олена ", City: "Львів"}
	u, grant, err := e.users.UpdateProfile(ctx, "u1", partial)
	require.NoError(t, err)
	require.Nil(t, grant)
	require.Equal(t, "Олена", u.DisplayName)

	full := repository.ProfileFields{
		DisplayName: "Олена",
		Phone:       "+380501234567",
		City:        "Львів",
		Bio:         "Манікюр та педикюр",
		AvatarURL:   "https://cdn.sviy.com.ua/a/u1.jpg",
	}
	u, grant, err = e.users.UpdateProfile(ctx, "u1", full)
	require.NoError(t, err)
	require.NotNil(t, grant)
	requireDecimal(t, 10, grant.Amount)
	requireDecimal(t, 10, u.Balance)

	_, grant, err = e.users.UpdateProfile(ctx, "u1", full)
	require.NoError(t, err)
	require.Nil(t, grant)
	require.Equal(t, 1, countReason(t, e, "u1", pricing.ActionProfileComplete.Reason()))
}

func TestUpdateProfileValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)

	_, _, err := e.users.UpdateProfile(ctx, "u1", repository.ProfileFields{DisplayName: " "})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "displayName", ve.Field)

	_, _, err = e.users.UpdateProfile(ctx, "u1", repository.ProfileFields{DisplayName: "ok", Phone: strings.Repeat("1", 40)})
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "phone", ve.Field)

	_, _, err = e.users.UpdateProfile(ctx, "ghost", repository.ProfileFields{DisplayName: "ok"})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCheckInOncePerDay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)
	e.setNow(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))

	res, err := e.users.CheckIn(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Granted)
	res, err = e.users.CheckIn(ctx, "u1")
	require.NoError(t, err)
	require.False(t, res.Granted)

	e.setNow(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	res, err = e.users.CheckIn(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Granted)
	requireDecimal(t, 2, testutil.Balance(t, e.db, "u1"))
}
