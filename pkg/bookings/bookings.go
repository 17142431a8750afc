// Package bookings is the booking ledger. It owns the rule that two bookings
// of the same court and date never overlap.
package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/aripzuan/BackEndAPI/pkg/circuitbreaker"
	"github.com/aripzuan/BackEndAPI/pkg/database"
	"github.com/aripzuan/BackEndAPI/pkg/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("booking not found")
	ErrOverlap  = errors.New("court already booked for this time")
)

// IsExpected reports outcomes that are answers rather than storage failures.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, models.ErrInvalidTimeRange)
}

type NewBooking struct {
	UserID      int64
	CourtType   string
	CourtNumber int
	Date        models.Date
	Range       models.TimeRange
	Description string
}

// Changes is a partial update. Nil fields keep their stored value. The court
// of a booking cannot be changed.
type Changes struct {
	Date        *models.Date
	TimeStart   *models.Clock
	TimeEnd     *models.Clock
	Description *string
}

type Ledger struct {
	db *gorm.DB
	cb *circuitbreaker.CircuitBreaker
}

func NewLedger(db *gorm.DB, cb *circuitbreaker.CircuitBreaker) *Ledger {
	return &Ledger{db: db, cb: cb}
}

// List returns bookings newest day first, earliest start first within a day.
// A nil userID lists every booking.
func (l *Ledger) List(ctx context.Context, userID *int64) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0)
	err := l.cb.Execute(func() error {
		q := l.db.WithContext(ctx).Order("date DESC, time_start ASC, id ASC")
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q.Find(&bookings).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (l *Ledger) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := l.cb.Execute(func() error {
		err := l.db.WithContext(ctx).First(&booking, id).Error
		if database.IsRecordNotFound(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &booking, nil
}

// Create inserts the booking unless it overlaps an existing booking of the
// same court and date. Check and insert run in one transaction holding the
// slot lock.
func (l *Ledger) Create(ctx context.Context, nb NewBooking) (*models.Booking, error) {
	if nb.Range == (models.TimeRange{}) {
		return nil, models.ErrInvalidTimeRange
	}
	booking := models.Booking{
		UserID:      nb.UserID,
		CourtType:   nb.CourtType,
		CourtNumber: nb.CourtNumber,
		Date:        nb.Date,
		TimeStart:   nb.Range.Start(),
		TimeEnd:     nb.Range.End(),
		Description: nb.Description,
	}
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		if err := database.LockSlot(tx, booking.Slot()); err != nil {
			return err
		}
		if err := checkOverlap(tx, booking.Slot(), nb.Range, 0); err != nil {
			return err
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		return nil, classify(err, "create booking")
	}
	return &booking, nil
}

// Update applies c to booking id and re-checks the result against the other
// bookings of its court and date.
func (l *Ledger) Update(ctx context.Context, id uint, c Changes) (*models.Booking, error) {
	var booking models.Booking
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if database.IsRecordNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		if c.Date != nil {
			booking.Date = *c.Date
		}
		if c.TimeStart != nil {
			booking.TimeStart = *c.TimeStart
		}
		if c.TimeEnd != nil {
			booking.TimeEnd = *c.TimeEnd
		}
		if c.Description != nil {
			booking.Description = *c.Description
		}
		r, err := models.NewTimeRange(booking.TimeStart, booking.TimeEnd)
		if err != nil {
			return err
		}

		if err := database.LockSlot(tx, booking.Slot()); err != nil {
			return err
		}
		if err := checkOverlap(tx, booking.Slot(), r, booking.ID); err != nil {
			return err
		}
		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("update booking %d", id))
	}
	return &booking, nil
}

// Delete removes booking id and returns it as it was stored.
func (l *Ledger) Delete(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if database.IsRecordNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		res := tx.Delete(&models.Booking{}, booking.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("delete booking %d", id))
	}
	return &booking, nil
}

// inTx runs fn in a transaction behind the breaker. The exclusion constraint
// backs up checkOverlap, so its violation is reported as ErrOverlap.
func (l *Ledger) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.cb.Execute(func() error {
		err := l.db.WithContext(ctx).Transaction(fn)
		if database.IsExclusionViolation(err) {
			return ErrOverlap
		}
		return err
	})
}

// checkOverlap fails with ErrOverlap when r intersects a booking of slot other
// than the one with id exclude.
func checkOverlap(tx *gorm.DB, slot models.Slot, r models.TimeRange, exclude uint) error {
	var existing []models.Booking
	q := tx.Where("court_type = ? AND court_number = ? AND date = ?", slot.CourtType, slot.CourtNumber, slot.Date)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Find(&existing).Error; err != nil {
		return fmt.Errorf("load bookings for %s #%d on %s: %w", slot.CourtType, slot.CourtNumber, slot.Date, err)
	}
	for _, b := range existing {
		if b.Range().Overlaps(r) {
			return fmt.Errorf("%w: booking %d holds %s", ErrOverlap, b.ID, b.Range())
		}
	}
	return nil
}

func classify(err error, op string) error {
	if IsExpected(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
