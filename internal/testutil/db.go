// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/sviy-ua/sviy-backend/internal/db"
	"github.com/sviy-ua/sviy-backend/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to t.
// A single connection serializes transactions the way row locks do on MySQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// SeedUser inserts a user whose balance is backed by an admin_grant entry,
// so balance and ledger agree from the start.
func SeedUser(t *testing.T, gdb *gorm.DB, uid string, balance int64) *model.User {
	t.Helper()
	u := &model.User{UID: uid, DisplayName: uid, Balance: decimal.NewFromInt(balance)}
	require.NoError(t, gdb.Create(u).Error)
	if balance != 0 {
		key := "seed:" + uid
		require.NoError(t, gdb.Create(&model.LedgerEntry{
			UserUID:        uid,
			Amount:         decimal.NewFromInt(balance),
			Kind:           model.EntryKindCredit,
			Reason:         model.ReasonAdminGrant,
			Description:    "seed",
			IdempotencyKey: &key,
			BalanceAfter:   decimal.NewFromInt(balance),
		}).Error)
	}
	return u
}

// Balance reads the stored balance of uid.
func Balance(t *testing.T, gdb *gorm.DB, uid string) decimal.Decimal {
	t.Helper()
	var u model.User
	require.NoError(t, gdb.Where("uid = ?", uid).First(&u).Error)
	return u.Balance
}

// Entries lists the ledger of uid oldest first.
func Entries(t *testing.T, gdb *gorm.DB, uid string) []model.LedgerEntry {
	t.Helper()
	var list []model.LedgerEntry
	require.NoError(t, gdb.Where("user_uid = ?", uid).Order("id").Find(&list).Error)
	return list
}

// RequireConsistent asserts balance == sum(ledger amounts) for uid.
func RequireConsistent(t *testing.T, gdb *gorm.DB, uid string) {
	t.Helper()
	sum := decimal.Zero
	for _, e := range Entries(t, gdb, uid) {
		sum = sum.Add(e.Amount)
	}
	require.True(t, Balance(t, gdb, uid).Equal(sum), "balance %s != ledger sum %s", Balance(t, gdb, uid), sum)
}
