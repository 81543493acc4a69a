package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Database   struct {
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	// Crypto holds the process-wide server key protecting externally
	// exposed consent and payment identifiers. The engine refuses to
	// start without it.
	Crypto struct {
		ServerKey string `mapstructure:"SERVER_KEY"`
	} `mapstructure:"CRYPTO"`
	Scheduler struct {
		StatusDateCron   string `mapstructure:"STATUS_DATE_CRON"`
		OneOffUsageCron  string `mapstructure:"ONE_OFF_USAGE_CRON"`
		NotConfirmedCron string `mapstructure:"NOT_CONFIRMED_CRON"`
		BatchSize        int    `mapstructure:"BATCH_SIZE"`
	} `mapstructure:"SCHEDULER"`
	BankProfile struct {
		MaxFrequencyPerDay                       int           `mapstructure:"MAX_FREQUENCY_PER_DAY"`
		NotConfirmedConsentExpiration            time.Duration `mapstructure:"NOT_CONFIRMED_CONSENT_EXPIRATION"`
		NotConfirmedPaymentExpiration            time.Duration `mapstructure:"NOT_CONFIRMED_PAYMENT_EXPIRATION"`
		MultilevelScaEnabled                     bool          `mapstructure:"MULTILEVEL_SCA_ENABLED"`
		ScaApproach                              string        `mapstructure:"SCA_APPROACH"`
		AuthorisationConfirmationRequestMandated bool          `mapstructure:"AUTHORISATION_CONFIRMATION_REQUEST_MANDATED"`
		RedirectURLToAspsp                       string        `mapstructure:"REDIRECT_URL_TO_ASPSP"`
		OauthTokenSecret                         string        `mapstructure:"OAUTH_TOKEN_SECRET"`
	} `mapstructure:"BANK_PROFILE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config file", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		client := p.Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}

		get := func(key string) string {
			if val, ok := secret.Data.Data[key].(string); ok {
				return val
			}
			return ""
		}

		cfg.Database.Password = get("postgres_password")
		cfg.Redis.Password = get("redis_password")
		cfg.Crypto.ServerKey = get("server_key")
		cfg.BankProfile.OauthTokenSecret = get("oauth_token_secret")
	}

	return &cfg
}
