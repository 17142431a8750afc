package database

import (
	"errors"
	"fmt"

	"github.com/aripzuan/BackEndAPI/pkg/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const exclusionViolation = "23P01"

// LockSlot serializes writers of one court-day until tx ends. SQLite already
// serializes write transactions, so the lock is only taken on Postgres.
func LockSlot(tx *gorm.DB, slot models.Slot) error {
	if tx.Dialector.Name() != DriverPostgres {
		return nil
	}
	key := fmt.Sprintf("bookings:%s:%d:%s", slot.CourtType, slot.CourtNumber, slot.Date)
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("lock slot %s: %w", key, err)
	}
	return nil
}

// IsExclusionViolation reports a Postgres exclusion constraint failure.
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
