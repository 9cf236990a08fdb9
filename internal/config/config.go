package config

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/parikart/storefront/internal/models"
	"github.com/parikart/storefront/pkg/db"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET    string
	KAFKA_ADDRESS string

	RAZORPAY_KEY_ID     string
	RAZORPAY_KEY_SECRET string
	STRIPE_SECRET_KEY   string

	BASE_URL  string
	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET:    os.Getenv("JWT_SECRET"),
		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		RAZORPAY_KEY_ID:     os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: os.Getenv("RAZORPAY_KEY_SECRET"),
		STRIPE_SECRET_KEY:   os.Getenv("STRIPE_SECRET_KEY"),

		BASE_URL:  os.Getenv("BASE_URL"),
		LOG_LEVEL: os.Getenv("LOG_LEVEL"),
	}

	return config, nil
}

// RazorpayConfigured reports whether both gateway keys are present and are
// not the placeholder values from .env.example.
func (c *Config) RazorpayConfigured() bool {
	return c.RAZORPAY_KEY_ID != "" && c.RAZORPAY_KEY_SECRET != "" &&
		!isPlaceholder(c.RAZORPAY_KEY_ID) && !isPlaceholder(c.RAZORPAY_KEY_SECRET)
}

func (c *Config) StripeConfigured() bool {
	return c.STRIPE_SECRET_KEY != "" && !isPlaceholder(c.STRIPE_SECRET_KEY)
}

func isPlaceholder(v string) bool {
	return len(v) >= 4 && v[:4] == "your"
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
}

func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	gdb, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}
