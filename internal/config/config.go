package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/mallofhookah/internal/constants"
)

type Application struct {
	Env       string        `mapstructure:"env"        json:"env"`
	Host      string        `mapstructure:"host"       json:"host"`
	SecretKey string        `mapstructure:"secret_key" json:"-"`
	Port      int           `mapstructure:"port"       json:"port"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"  json:"token_ttl"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
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

type Checkout struct {
	Currency                    string        `mapstructure:"currency"                       json:"currency"`
	TaxRate                     float64       `mapstructure:"tax_rate"                       json:"tax_rate"`
	StandardFee                 float64       `mapstructure:"standard_fee"                   json:"standard_fee"`
	NationwideFreeThreshold     float64       `mapstructure:"nationwide_free_threshold"      json:"nationwide_free_threshold"`
	CloseRadiusFreeThreshold    float64       `mapstructure:"close_radius_free_threshold"    json:"close_radius_free_threshold"`
	ExtendedRadiusFreeThreshold float64       `mapstructure:"extended_radius_free_threshold" json:"extended_radius_free_threshold"`
	CloseRadius                 []string      `mapstructure:"close_radius"                   json:"close_radius"`
	ExtendedRadius              []string      `mapstructure:"extended_radius"                json:"extended_radius"`
	CompensationTimeout         time.Duration `mapstructure:"compensation_timeout"           json:"compensation_timeout"`
	ConfirmationTTL             time.Duration `mapstructure:"confirmation_ttl"               json:"confirmation_ttl"`
}

type Cart struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl" json:"idle_ttl"`
}

type Email struct {
	From       string        `mapstructure:"from"        json:"from"`
	WebhookURL string        `mapstructure:"webhook_url" json:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"     json:"timeout"`
}

type Auth struct {
	EmailRedirectURL string `mapstructure:"email_redirect_url" json:"email_redirect_url"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Checkout    `mapstructure:"checkout"    json:"checkout"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Email       `mapstructure:"email"       json:"email"`
	Auth        `mapstructure:"auth"        json:"auth"`
}

var (
	once   sync.Once
	config *Config
)

func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "config Get").
			Str(constants.KEY_PROCESS, "init config").
			Str("filename", filename).
			Logger()

		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.SetConfigType("yaml")
		viper.AutomaticEnv()

		logger = logger.With().Str(constants.KEY_PROCESS, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
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
