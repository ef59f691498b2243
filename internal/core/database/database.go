package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Settings describes how to reach the Postgres database.
type Settings struct {
	Host      string
	Port      int
	User      string
	Password  string
	Name      string
	SSLMode   string
	SlowQuery time.Duration
}

// DSN returns the keyword/value connection string used by the gorm driver.
func (s Settings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Name, s.sslMode())
}

// URL returns the postgres:// connection URL used by migrations.
func (s Settings) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:     "/" + s.Name,
		RawQuery: url.Values{"sslmode": []string{s.sslMode()}}.Encode(),
	}
	return u.String()
}

func (s Settings) sslMode() string {
	if s.SSLMode == "" {
		return "disable"
	}
	return s.SSLMode
}

// Open connects to Postgres through gorm with queries logged by zap.
func Open(s Settings) (*gorm.DB, error) {
	return OpenDSN(s.DSN(), s.SlowQuery)
}

// OpenDSN connects to the database described by dsn.
func OpenDSN(dsn string, slowQuery time.Duration) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 NewGormLogger(slowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Ping checks the underlying connection pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
