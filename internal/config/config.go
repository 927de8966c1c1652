package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"fairplay"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"fairplay"`
	DBName     string `env:"DB_NAME" envDefault:"fairplay"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-do-not-use"`

	// House rules.
	RTP              float64 `env:"GAME_RTP" envDefault:"0.96"`
	DealerHitsSoft17 bool    `env:"DEALER_HITS_SOFT17" envDefault:"false"`

	MinBet          decimal.Decimal `env:"MIN_BET" envDefault:"0.10"`
	MaxBet          decimal.Decimal `env:"MAX_BET" envDefault:"1000"`
	MaxPayout       decimal.Decimal `env:"MAX_PAYOUT" envDefault:"100000"`
	StartingBalance decimal.Decimal `env:"STARTING_BALANCE" envDefault:"100"`
	CashoutFeeRate  float64         `env:"CASHOUT_FEE_RATE" envDefault:"0"`

	BetsPerMinute int `env:"BETS_PER_MINUTE" envDefault:"30"`

	SessionLease time.Duration `env:"SESSION_LEASE" envDefault:"60s"`

	BettingDuration time.Duration `env:"ROUND_BETTING_DURATION" envDefault:"10s"`
	SpinDuration    time.Duration `env:"ROUND_SPIN_DURATION" envDefault:"4s"`
	ResultsDuration time.Duration `env:"ROUND_RESULTS_DURATION" envDefault:"3s"`
	CountdownTick   time.Duration `env:"ROUND_COUNTDOWN_TICK" envDefault:"250ms"`
	RoundHistory    int           `env:"ROUND_HISTORY_SIZE" envDefault:"50"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): parseDecimal,
		},
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.RTP <= 0 || cfg.RTP > 1 {
		return nil, fmt.Errorf("config: GAME_RTP must be in (0, 1], got %v", cfg.RTP)
	}

	return cfg, nil
}

func parseDecimal(v string) (interface{}, error) {
	return decimal.NewFromString(v)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
