package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/marketclub/internal/constants"
)

type Application struct {
	Env     string `mapstructure:"env"      json:"env"`
	Host    string `mapstructure:"host"     json:"host"`
	LogFile string `mapstructure:"log_file" json:"log_file"`
	Port    int    `mapstructure:"port"     json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int    `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int    `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// Backend is the remote REST API every cart, wishlist, order and payment call goes to.
type Backend struct {
	BaseURL         string        `mapstructure:"base_url"          json:"base_url"`
	SecretKey       string        `mapstructure:"secret_key"        json:"-"`
	Timeout         time.Duration `mapstructure:"timeout"           json:"timeout"`
	ProductCacheTTL time.Duration `mapstructure:"product_cache_ttl" json:"product_cache_ttl"`
}

type Wompi struct {
	PublicKey       string        `mapstructure:"public_key"       json:"public_key"`
	MerchantID      string        `mapstructure:"merchant_id"      json:"merchant_id"`
	IntegritySecret string        `mapstructure:"integrity_secret" json:"-"`
	EventsSecret    string        `mapstructure:"events_secret"    json:"-"`
	CheckoutURL     string        `mapstructure:"checkout_url"     json:"checkout_url"`
	Currency        string        `mapstructure:"currency"         json:"currency"`
	RedirectURL     string        `mapstructure:"redirect_url"     json:"redirect_url"`
	FailureURL      string        `mapstructure:"failure_url"      json:"failure_url"`
	WebhookLockTTL  time.Duration `mapstructure:"webhook_lock_ttl" json:"webhook_lock_ttl"`
}

type Pricing struct {
	TaxRate          string `mapstructure:"tax_rate"           json:"tax_rate"`
	ShippingFlat     int64  `mapstructure:"shipping_flat"      json:"shipping_flat"`
	FreeShippingFrom int64  `mapstructure:"free_shipping_from" json:"free_shipping_from"`
}

type Wholesale struct {
	WhatsappNumber  string `mapstructure:"whatsapp_number"  json:"whatsapp_number"`
	MinimumQuantity int32  `mapstructure:"minimum_quantity" json:"minimum_quantity"`
}

type Session struct {
	CookieName string `mapstructure:"cookie_name"  json:"cookie_name"`
	FilePath   string `mapstructure:"file_path"    json:"file_path"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Backend     `mapstructure:"backend"     json:"backend"`
	Wompi       `mapstructure:"wompi"       json:"wompi"`
	Pricing     `mapstructure:"pricing"     json:"pricing"`
	Wholesale   `mapstructure:"wholesale"   json:"wholesale"`
	Session     `mapstructure:"session"     json:"session"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults() {
	viper.SetDefault("application.env", "development")
	viper.SetDefault("application.host", "0.0.0.0")
	viper.SetDefault("application.port", 8080)
	viper.SetDefault("application.log_file", "/var/log/marketclub.log")
	viper.SetDefault("backend.timeout", 15*time.Second)
	viper.SetDefault("wompi.checkout_url", "https://checkout.wompi.co/p/")
	viper.SetDefault("wompi.currency", "COP")
	viper.SetDefault("backend.product_cache_ttl", 30*time.Second)
	viper.SetDefault("wompi.webhook_lock_ttl", 30*time.Second)
	viper.SetDefault("pricing.tax_rate", "0.19")
	viper.SetDefault("pricing.shipping_flat", 0)
	viper.SetDefault("pricing.free_shipping_from", 0)
	viper.SetDefault("wholesale.minimum_quantity", 6)
	viper.SetDefault("session.cookie_name", "mc_session_id")
	viper.SetDefault("session.file_path", ".marketclub/session.json")
	viper.SetDefault("session.max_age_days", 30)
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.migration_path", "file://migrations")
	viper.SetDefault("db.max_connections", 10)
	viper.SetDefault("db.min_connections", 2)
	viper.SetDefault("cache.port", 6379)
	viper.SetDefault("cache.database", 0)
	viper.SetDefault("otel.host", "otel-collector")
	viper.SetDefault("otel.port", 4317)

	// keys without a sensible default still need registering so AutomaticEnv reaches them on Unmarshal
	for _, key := range []string{
		"backend.base_url", "backend.secret_key",
		"wompi.public_key", "wompi.merchant_id", "wompi.integrity_secret", "wompi.events_secret",
		"wompi.redirect_url", "wompi.failure_url",
		"wholesale.whatsapp_number",
		"db.name", "db.host", "db.username", "db.password", "db.timezone",
		"cache.host", "cache.password",
	} {
		if !viper.IsSet(key) {
			viper.SetDefault(key, "")
		}
	}
}

func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "config Get").
			Str(constants.KEY_PROCESS, "init config").
			Str("filename", filename).
			Logger()

		setDefaults()
		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetEnvPrefix("MARKETCLUB")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		logger = logger.With().Str(constants.KEY_PROCESS, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				err = fmt.Errorf("failed reading config with error=%w", err)
				logger.Fatal().Err(err).Msg(err.Error())
			}
			logger.Warn().Err(err).Msg("config file not found using defaults and environment")
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(constants.KEY_PROCESS, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		cfg := Config{}
		err = viper.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("failed unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger.Info().Any(constants.KEY_CONFIG, cfg).Msg("unmarshaled config")
	})
	return config
}
