// Command ledger-audit reports every user whose stored balance differs from
// the sum of their ledger entries. It exits 1 when any mismatch is found.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sviy-ua/sviy-backend/internal/config"
	"github.com/sviy-ua/sviy-backend/internal/db"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/service"
)

func main() {
	n, err := run()
	if err != nil {
		log.Fatalf("ledger-audit failed: %v", err)
	}
	if n > 0 {
		os.Exit(1)
	}
}

func run() (int, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return 0, fmt.Errorf("connect db: %w", err)
	}
	ledger := service.NewLedgerService(gdb, repository.NewUserRepository(gdb), repository.NewLedgerRepository(gdb))
	bad, err := ledger.Audit(context.Background())
	if err != nil {
		return 0, err
	}
	for _, c := range bad {
		fmt.Printf("%s\tbalance=%s\tledger=%s\n", c.UserUID, c.Balance, c.LedgerSum)
	}
	log.Printf("%d mismatched users", len(bad))
	return len(bad), nil
}
