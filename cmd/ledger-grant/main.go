// Command ledger-grant credits (or, with a negative amount, debits) a user
// through the ledger with reason admin_grant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sviy-ua/sviy-backend/internal/config"
	"github.com/sviy-ua/sviy-backend/internal/db"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ledger-grant failed: %v", err)
	}
}

func run() error {
	uid := flag.String("uid", "", "Firebase UID to credit")
	amountStr := flag.String("amount", "", "UCM amount, negative to debit")
	note := flag.String("note", "Нарахування адміністратором", "ledger description")
	key := flag.String("key", "", "optional idempotency key; repeated runs with the same key post once")
	flag.Parse()

	if *uid == "" || *amountStr == "" {
		flag.Usage()
		return errors.New("-uid and -amount are required")
	}
	amount, err := decimal.NewFromString(*amountStr)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	ctx := context.Background()
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	ledger := service.NewLedgerService(gdb, repository.NewUserRepository(gdb), repository.NewLedgerRepository(gdb))
	entry, err := ledger.AdminGrant(ctx, *uid, amount, *note, *key)
	if errors.Is(err, service.ErrAlreadyPosted) {
		log.Printf("key %q already posted; nothing to do", *key)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("entry %d: %s %s, balance now %s", entry.ID, *uid, entry.Amount, entry.BalanceAfter)
	return nil
}
