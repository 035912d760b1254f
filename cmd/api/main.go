package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sviy-ua/sviy-backend/internal/archive"
	"github.com/sviy-ua/sviy-backend/internal/config"
	"github.com/sviy-ua/sviy-backend/internal/db"
	appmw "github.com/sviy-ua/sviy-backend/internal/middleware"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/server"
)

// Set via -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	var archiver archive.Archiver = archive.Nop{}
	if cfg.PaymentAuditBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.PaymentAuditBucket, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Printf("payment archive disabled: %v", err)
		} else {
			defer gcs.Close()
			archiver = gcs
		}
	}

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID)
	if err != nil {
		log.Fatalf("failed to init firebase auth: %v", err)
	}

	svc := server.NewServices(conn, cfg, pricing.Default(), archiver)
	srv := server.New(svc, server.Options{
		SHA:               gitSHA,
		BuildTime:         buildTime,
		CORSAllowedSuffix: cfg.CORSAllowedSuffix,
		Auth:              authMw.RequireAuth,
		Identity:          authMw.Client(),
	})

	addr := ":" + cfg.Port
	log.Printf("starting server on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
