// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds configuration knobs for the servers, storage and billing.
type Config struct {
	HTTPAddr           string
	GRPCAddr           string
	MySQLDSN           string
	RedisAddr          string
	RedisPassword      string
	QueueSize          int
	ShutdownTimeout    time.Duration
	LogLevel           string
	JWTSecret          string
	JWTTTL             time.Duration
	ProPrice           decimal.Decimal
	Currency           string
	LowStockThreshold  int
	PaymentSuccessRate float64
	PaymentLockTTL     time.Duration
	SeedFile           string
	AdminEmails        []string
}

var defaults = map[string]any{
	"HTTP_ADDR":            ":8080",
	"GRPC_ADDR":            ":50051",
	"MYSQL_DSN":            "",
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"QUEUE_SIZE":           1024,
	"SHUTDOWN_TIMEOUT":     "15s",
	"LOG_LEVEL":            "info",
	"JWT_SECRET":           "",
	"JWT_TTL":              "24h",
	"PRO_PRICE":            "99",
	"CURRENCY":             "INR",
	"LOW_STOCK_THRESHOLD":  10,
	"PAYMENT_SUCCESS_RATE": 0.95,
	"PAYMENT_LOCK_TTL":     "30s",
	"SEED_FILE":            "",
	"ADMIN_EMAILS":         "",
	"CONFIG_FILE":          "",
}

// Load collects configuration from defaults, the optional CONFIG_FILE and the
// environment, in increasing priority.
func Load() (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	price, err := decimal.NewFromString(v.GetString("PRO_PRICE"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PRO_PRICE: %w", err)
	}

	cfg := Config{
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		GRPCAddr:           v.GetString("GRPC_ADDR"),
		MySQLDSN:           v.GetString("MYSQL_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		QueueSize:          v.GetInt("QUEUE_SIZE"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		ProPrice:           price,
		Currency:           v.GetString("CURRENCY"),
		LowStockThreshold:  v.GetInt("LOW_STOCK_THRESHOLD"),
		PaymentSuccessRate: v.GetFloat64("PAYMENT_SUCCESS_RATE"),
		PaymentLockTTL:     v.GetDuration("PAYMENT_LOCK_TTL"),
		SeedFile:           v.GetString("SEED_FILE"),
		AdminEmails:        splitList(v.GetString("ADMIN_EMAILS")),
	}
	return cfg, cfg.Validate()
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch {
	case c.QueueSize <= 0:
		return fmt.Errorf("QUEUE_SIZE must be positive, got %d", c.QueueSize)
	case c.PaymentSuccessRate < 0 || c.PaymentSuccessRate > 1:
		return fmt.Errorf("PAYMENT_SUCCESS_RATE must be within [0,1], got %v", c.PaymentSuccessRate)
	case !c.ProPrice.IsPositive():
		return fmt.Errorf("PRO_PRICE must be positive, got %s", c.ProPrice)
	case c.JWTTTL <= 0:
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	return nil
}
