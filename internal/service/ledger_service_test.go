package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"github.com/sviy-ua/sviy-backend/internal/testutil"
)

func TestPostCreditAndDebit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)

	entry, err := e.ledger.Post(ctx, Posting{UserUID: "u1", Amount: dec(40), Kind: model.EntryKindCredit, Reason: model.ReasonAdminGrant})
	require.NoError(t, err)
	requireDecimal(t, 40, entry.Amount)
	requireDecimal(t, 40, entry.BalanceAfter)

	entry, err = e.ledger.Post(ctx, Posting{UserUID: "u1", Amount: dec(15), Kind: model.EntryKindDebit, Reason: model.ReasonAdminGrant})
	require.NoError(t, err)
	requireDecimal(t, -15, entry.Amount)
	requireDecimal(t, 25, entry.BalanceAfter)

	requireDecimal(t, 25, testutil.Balance(t, e.db, "u1"))
	testutil.RequireConsistent(t, e.db, "u1")
}

func TestPostOverdraftLeavesNothing(t *testing.T) {
	e := newTestEnv(t)
	testutil.SeedUser(t, e.db, "u1", 10)

	_, err := e.ledger.Post(context.Background(), Posting{UserUID: "u1", Amount: dec(11), Kind: model.EntryKindDebit, Reason: model.ReasonAdminGrant})
	var ib *InsufficientBalanceError
	require.True(t, errors.As(err, &ib))
	requireDecimal(t, 11, ib.Required)
	requireDecimal(t, 10, ib.Current)
	requireDecimal(t, 1, ib.Missing)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	requireDecimal(t, 10, testutil.Balance(t, e.db, "u1"))
	require.Len(t, testutil.Entries(t, e.db, "u1"), 1)
}

func TestPostRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 10)

	_, err := e.ledger.Post(ctx, Posting{UserUID: "u1", Amount: dec(0), Kind: model.EntryKindCredit, Reason: model.ReasonAdminGrant})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.ledger.Post(ctx, Posting{UserUID: "u1", Amount: dec(-5), Kind: model.EntryKindDebit, Reason: model.ReasonAdminGrant})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.ledger.Post(ctx, Posting{UserUID: "ghost", Amount: dec(5), Kind: model.EntryKindCredit, Reason: model.ReasonAdminGrant})
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = e.ledger.Post(ctx, Posting{UserUID: "ghost", Amount: dec(5), Kind: model.EntryKindDebit, Reason: model.ReasonAdminGrant})
	require.ErrorIs(t, err, ErrUserNotFound)

	requireDecimal(t, 10, testutil.Balance(t, e.db, "u1"))
}

func TestPostIdempotencyKey(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)

	p := Posting{UserUID: "u1", Amount: dec(7), Kind: model.EntryKindCredit, Reason: model.ReasonAdminGrant, IdempotencyKey: "grant:once"}
	_, err := e.ledger.Post(ctx, p)
	require.NoError(t, err)
	_, err = e.ledger.Post(ctx, p)
	require.ErrorIs(t, err, ErrAlreadyPosted)

	requireDecimal(t, 7, testutil.Balance(t, e.db, "u1"))
	require.Len(t, testutil.Entries(t, e.db, "u1"), 1)
}

func TestHistoryNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 100)
	for i := 0; i < 3; i++ {
		_, err := e.ledger.Post(ctx, Posting{UserUID: "u1", Amount: dec(1), Kind: model.EntryKindDebit, Reason: model.ReasonAdminGrant})
		require.NoError(t, err)
	}

	list, total, err := e.ledger.History(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, list, 2)
	require.Greater(t, list[0].ID, list[1].ID)
	requireDecimal(t, 97, list[0].BalanceAfter)
}

func TestAdminGrantAndAudit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	testutil.SeedUser(t, e.db, "u1", 0)
	testutil.SeedUser(t, e.db, "u2", 5)

	_, err := e.ledger.AdminGrant(ctx, "u1", dec(50), "welcome", "")
	require.NoError(t, err)
	_, err = e.ledger.AdminGrant(ctx, "u1", dec(-20), "correction", "")
	require.NoError(t, err)
	requireDecimal(t, 30, testutil.Balance(t, e.db, "u1"))

	bad, err := e.ledger.Audit(ctx)
	require.NoError(t, err)
	require.Empty(t, bad)

	require.NoError(t, e.db.Model(&model.User{}).Where("uid = ?", "u2").Update("balance", 99).Error)
	bad, err = e.ledger.Audit(ctx)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	require.Equal(t, "u2", bad[0].UserUID)
	requireDecimal(t, 5, bad[0].LedgerSum)

	c, err := e.ledger.CheckConsistency(ctx, "u1")
	require.NoError(t, err)
	require.True(t, c.OK())
}
