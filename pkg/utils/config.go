package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Inventory InventoryConfig
	Sweeper   SweeperConfig
	Fees      FeeConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	StoreDriver string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	URL string
}

// InventoryConfig holds the retry policy and hold windows shared by the ledger,
// the seat store and the order engine.
type InventoryConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	SeatHoldTTL  time.Duration
	CashHoldTTL  time.Duration
	RoomHoldTTL  time.Duration
}

type SweeperConfig struct {
	Interval time.Duration
	Token    string
}

type FeeConfig struct {
	PlatformPercent   decimal.Decimal
	PlatformFixed     decimal.Decimal
	ProcessingPercent decimal.Decimal
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "event-ticketing")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LEDGER_MAX_ATTEMPTS", 5)
	viper.SetDefault("LEDGER_RETRY_BACKOFF_MS", 10)
	viper.SetDefault("SEAT_HOLD_TTL_MINUTES", 15)
	viper.SetDefault("CASH_HOLD_TTL_MINUTES", 30)
	viper.SetDefault("ROOM_HOLD_TTL_MINUTES", 15)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 5)
	viper.SetDefault("PLATFORM_FEE_PERCENT", "3.7")
	viper.SetDefault("PLATFORM_FEE_FIXED", "1.79")
	viper.SetDefault("PROCESSING_FEE_PERCENT", "2.9")
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)

	// .env is optional; environment variables override it either way
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	platformPercent, err := decimal.NewFromString(viper.GetString("PLATFORM_FEE_PERCENT"))
	if err != nil {
		return nil, errors.New("PLATFORM_FEE_PERCENT must be a decimal")
	}
	platformFixed, err := decimal.NewFromString(viper.GetString("PLATFORM_FEE_FIXED"))
	if err != nil {
		return nil, errors.New("PLATFORM_FEE_FIXED must be a decimal")
	}
	processingPercent, err := decimal.NewFromString(viper.GetString("PROCESSING_FEE_PERCENT"))
	if err != nil {
		return nil, errors.New("PROCESSING_FEE_PERCENT must be a decimal")
	}

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			StoreDriver: viper.GetString("STORE_DRIVER"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("REDIS_URL"),
		},
		Inventory: InventoryConfig{
			MaxAttempts:  viper.GetInt("LEDGER_MAX_ATTEMPTS"),
			RetryBackoff: time.Duration(viper.GetInt("LEDGER_RETRY_BACKOFF_MS")) * time.Millisecond,
			SeatHoldTTL:  time.Duration(viper.GetInt("SEAT_HOLD_TTL_MINUTES")) * time.Minute,
			CashHoldTTL:  time.Duration(viper.GetInt("CASH_HOLD_TTL_MINUTES")) * time.Minute,
			RoomHoldTTL:  time.Duration(viper.GetInt("ROOM_HOLD_TTL_MINUTES")) * time.Minute,
		},
		Sweeper: SweeperConfig{
			Interval: time.Duration(viper.GetInt("SWEEP_INTERVAL_MINUTES")) * time.Minute,
			Token:    viper.GetString("SWEEP_TOKEN"),
		},
		Fees: FeeConfig{
			PlatformPercent:   platformPercent,
			PlatformFixed:     platformFixed,
			ProcessingPercent: processingPercent,
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

// DefaultInventoryConfig mirrors the LoadConfig defaults for callers without a .env.
func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		MaxAttempts:  5,
		RetryBackoff: 10 * time.Millisecond,
		SeatHoldTTL:  15 * time.Minute,
		CashHoldTTL:  30 * time.Minute,
		RoomHoldTTL:  15 * time.Minute,
	}
}

func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		PlatformPercent:   decimal.RequireFromString("3.7"),
		PlatformFixed:     decimal.RequireFromString("1.79"),
		ProcessingPercent: decimal.RequireFromString("2.9"),
	}
}
