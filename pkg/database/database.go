package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aripzuan/BackEndAPI/pkg/logger"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver string
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	ConnectRetries int
	RetryDelay     time.Duration

	Log zerolog.Logger
}

// Open connects with retries, tunes the pool and pings the database.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	dialector, err := newDialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	attempts := opts.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         logger.Gorm(opts.Log),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		opts.Log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", attempts).Msg("database connection attempt failed")
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if opts.Driver == DriverSQLite {
		// every connection to an in-memory database is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	opts.Log.Info().Str("driver", dialector.Name()).Msg("database connection established")
	return db, nil
}

func newDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates the courts and bookings tables and, on Postgres, the
// exclusion constraint that keeps bookings of one court-day from overlapping.
func Migrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.Court{}, &models.Booking{}); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}

	if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		log.Warn().Err(err).Msg("btree_gist unavailable; overlap protection relies on slot locks only")
		return nil
	}
	if err := db.WithContext(ctx).Exec(bookingExclusionDDL).Error; err != nil {
		log.Warn().Err(err).Msg("could not add bookings_no_overlap constraint; overlap protection relies on slot locks only")
	}
	return nil
}

const bookingExclusionDDL = `DO $$
BEGIN
	ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
		EXCLUDE USING gist (
			court_type WITH =,
			court_number WITH =,
			tsrange(date + time_start, date + time_end) WITH &&
		);
EXCEPTION
	WHEN duplicate_object THEN NULL;
END $$`

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsRecordNotFound reports gorm's missing-row error.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
