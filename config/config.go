/*
Package config loads runtime settings from the environment.

PURPOSE:
  One place that knows every setting name and default. An optional .env file
  is read first; variables already set in the environment win over it.

KEYS:
  PORT                    HTTP port                      8080
  DB_DRIVER               sqlite3 | postgres             sqlite3
  DB_DSN                  file path or postgres URL      profit.db
  DB_MAX_OPEN_CONNS       pool size (postgres only)      25
  DB_MAX_IDLE_CONNS       idle pool size (postgres only) 25
  DB_MAX_IDLE_TIME        idle connection lifetime       15m
  REDIS_ADDR              host:port, empty = in-process  ""
  LOG_LEVEL               debug | info | warn | error    info
  LOG_DEV                 human-readable console output  false
  RETRY_MAX_ATTEMPTS      unit of work attempts          4
  RETRY_INITIAL_INTERVAL  first retry delay              50ms
  RETRY_MAX_INTERVAL      retry delay cap                1s
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/store/sqlstore"
)

type Config struct {
	Port int

	DB sqlstore.Config

	RedisAddr string

	LogLevel string
	LogDev   bool

	Retry ledger.RetryPolicy
}

// Load reads path (if it exists) into the environment and builds a Config.
// An empty path means ".env".
func Load(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Port: GetInt("PORT", 8080),
		DB: sqlstore.Config{
			Driver:          GetString("DB_DRIVER", sqlstore.DriverSQLite),
			DSN:             GetString("DB_DSN", "profit.db"),
			MaxOpenConns:    GetInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    GetInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxIdleTime: GetDuration("DB_MAX_IDLE_TIME", 15*time.Minute),
		},
		RedisAddr: GetString("REDIS_ADDR", ""),
		LogLevel:  GetString("LOG_LEVEL", "info"),
		LogDev:    GetBool("LOG_DEV", false),
		Retry: ledger.RetryPolicy{
			MaxAttempts:     GetInt("RETRY_MAX_ATTEMPTS", ledger.DefaultRetryPolicy.MaxAttempts),
			InitialInterval: GetDuration("RETRY_INITIAL_INTERVAL", ledger.DefaultRetryPolicy.InitialInterval),
			MaxInterval:     GetDuration("RETRY_MAX_INTERVAL", ledger.DefaultRetryPolicy.MaxInterval),
		},
	}
}

func GetString(key, fallback string) string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return val
}

func GetInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func GetBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return dur
}
