package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sviy-ua/sviy-backend/internal/archive"
	"github.com/sviy-ua/sviy-backend/internal/config"
	"github.com/sviy-ua/sviy-backend/internal/handler"
	appmw "github.com/sviy-ua/sviy-backend/internal/middleware"
	"github.com/sviy-ua/sviy-backend/internal/pricing"
	"github.com/sviy-ua/sviy-backend/internal/repository"
	"github.com/sviy-ua/sviy-backend/internal/service"
	"github.com/sviy-ua/sviy-backend/internal/wayforpay"
	"gorm.io/gorm"
)

// Services is the wired domain layer behind the HTTP API.
type Services struct {
	Prices    *pricing.Table
	Ledger    service.LedgerService
	Charges   service.ChargeService
	Rewards   service.RewardService
	Referrals service.ReferralService
	Notify    service.NotificationService
	Payments  service.PaymentService
	Requests  service.RequestService
	Listings  service.ListingService
	Reviews   service.ReviewService
	Users     service.UserService
}

func NewServices(db *gorm.DB, cfg *config.Config, prices *pricing.Table, archiver archive.Archiver) *Services {
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	listingRepo := repository.NewListingRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	s := &Services{Prices: prices}
	s.Ledger = service.NewLedgerService(db, userRepo, ledgerRepo)
	s.Notify = service.NewNotificationService(notificationRepo)
	s.Referrals = service.NewReferralService(s.Ledger, userRepo, ledgerRepo, s.Notify, cfg.ReferralBonus)
	s.Rewards = service.NewRewardService(prices, s.Ledger, userRepo, ledgerRepo, listingRepo, requestRepo, reviewRepo)
	s.Charges = service.NewChargeService(prices, s.Ledger, s.Referrals.OnCharge)

	wfp := cfg.WayForPay
	merchant := wayforpay.NewMerchant(wfp.MerchantAccount, wfp.Domain, wfp.SecretKey, wfp.ReturnURL, wfp.ServiceURL)
	s.Payments = service.NewPaymentService(s.Ledger, userRepo, paymentRepo, merchant, archiver, s.Notify, wfp.Currency,
		service.PaymentLimits{Min: cfg.MinTopUp, Max: cfg.MaxTopUp})

	s.Requests = service.NewRequestService(requestRepo, s.Charges, s.Rewards, s.Notify)
	s.Listings = service.NewListingService(listingRepo, s.Charges, s.Rewards)
	s.Reviews = service.NewReviewService(reviewRepo, requestRepo, s.Rewards)
	s.Users = service.NewUserService(userRepo, s.Referrals, s.Rewards)
	return s
}

type Options struct {
	SHA               string
	BuildTime         string
	CORSAllowedSuffix string
	Auth              echo.MiddlewareFunc
	Identity          handler.IdentityLookup
}

type Server struct {
	e *echo.Echo
}

func New(svc *Services, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: appmw.AttachRequestID,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.CORSAllowedSuffix),
	}))

	userHandler := handler.NewUserHandler(svc.Users, svc.Reviews, opts.Identity)
	walletHandler := handler.NewWalletHandler(svc.Ledger, svc.Rewards, svc.Referrals, svc.Prices)
	notificationHandler := handler.NewNotificationHandler(svc.Notify)
	paymentHandler := handler.NewPaymentHandler(svc.Payments, svc.Notify)
	requestHandler := handler.NewRequestHandler(svc.Requests, svc.Reviews, svc.Prices)
	listingHandler := handler.NewListingHandler(svc.Listings)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.SHA,
			"build_time": opts.BuildTime,
		})
	})

	api := e.Group("/api")
	api.GET("/pricing", walletHandler.Pricing)
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/:id", listingHandler.Get)
	api.GET("/users/:uid/public", userHandler.GetPublic)
	api.POST("/payments/wayforpay/callback", paymentHandler.Callback)

	auth := opts.Auth
	api.POST("/me/register", userHandler.Register, auth)
	api.GET("/me", userHandler.Me, auth)
	api.PUT("/me/profile", userHandler.UpdateProfile, auth)
	api.POST("/me/checkin", userHandler.CheckIn, auth)
	api.GET("/me/balance", walletHandler.Balance, auth)
	api.GET("/me/ledger", walletHandler.History, auth)
	api.GET("/me/earnings", walletHandler.Earnings, auth)
	api.GET("/me/referral", walletHandler.Referral, auth)
	api.GET("/me/notifications", notificationHandler.List, auth)
	api.POST("/me/notifications/read", notificationHandler.MarkAllRead, auth)
	api.GET("/me/payments", paymentHandler.ListMine, auth)
	api.GET("/me/requests", requestHandler.ListMine, auth)
	api.POST("/payments", paymentHandler.Create, auth)
	api.GET("/payments/:ref", paymentHandler.Get, auth)
	api.POST("/requests", requestHandler.Create, auth)
	api.GET("/requests/:id", requestHandler.Get, auth)
	api.POST("/requests/:id/accept", requestHandler.Accept, auth)
	api.POST("/requests/:id/complete", requestHandler.Complete, auth)
	api.POST("/requests/:id/cancel", requestHandler.Cancel, auth)
	api.POST("/requests/:id/review", requestHandler.Review, auth)
	api.POST("/listings", listingHandler.Create, auth)
	api.POST("/listings/:id/boost", listingHandler.Boost, auth)
	api.POST("/partners/search", listingHandler.Search, auth)

	return &Server{e: e}
}

func allowOrigin(suffix string) func(origin string) (bool, error) {
	suffix = strings.ToLower(strings.TrimSpace(suffix))
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := strings.ToLower(u.Hostname())
		if suffix != "" && (host == suffix || strings.HasSuffix(host, "."+suffix)) {
			return true, nil
		}
		return false, nil
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Handler() http.Handler {
	return s.e
}
