package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectDB() (*pgxpool.Pool, error) {
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Printf("[DB] ❌ Failed to parse config: %v", err)
		return nil, err
	}

	poolConfig.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", 20))
	poolConfig.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", 2))
	poolConfig.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	poolConfig.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)

	var dbpool *pgxpool.Pool

	maxRetries := 5
	delay := 2 * time.Second

	for i := 1; i <= maxRetries; i++ {
		log.Printf("[DB] Attempt %d/%d: connecting to database...", i, maxRetries)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		dbpool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			err = dbpool.Ping(ctx)
		}
		cancel()

		if err == nil {
			log.Printf("[DB] ✅ Connected to %s/%s", os.Getenv("DB_HOST"), os.Getenv("DB_NAME"))
			return dbpool, nil
		}

		log.Printf("[DB] ⚠️  Connection failed: %v", err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}
