package config

import (
	"github.com/caarlos0/env/v9"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CORSAllowedSuffix string `env:"CORS_ALLOWED_SUFFIX" envDefault:"sviy.com.ua"`

	WayForPay WayForPay `envPrefix:"WAYFORPAY_"`

	ReferralBonus decimal.Decimal `env:"REFERRAL_BONUS_UCM" envDefault:"20"`
	MinTopUp      decimal.Decimal `env:"MIN_TOPUP_UCM" envDefault:"10"`
	MaxTopUp      decimal.Decimal `env:"MAX_TOPUP_UCM" envDefault:"10000"`

	PaymentAuditBucket    string `env:"PAYMENT_AUDIT_BUCKET"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

// WayForPay holds merchant credentials for the top-up gateway.
type WayForPay struct {
	MerchantAccount string `env:"MERCHANT_ACCOUNT"`
	SecretKey       string `env:"SECRET_KEY"`
	Domain          string `env:"DOMAIN" envDefault:"sviy.com.ua"`
	ReturnURL       string `env:"RETURN_URL"`
	ServiceURL      string `env:"SERVICE_URL"`
	Currency        string `env:"CURRENCY" envDefault:"UAH"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
