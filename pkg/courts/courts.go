// Package courts is the court registry: CRUD over court records.
package courts

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
	ErrNotFound  = errors.New("court not found")
	ErrDuplicate = errors.New("a court with this type and number already exists")
)

// IsExpected reports outcomes that are answers rather than storage failures.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
}

// Fields is the writable part of a court. An empty Status means available.
type Fields struct {
	CourtType    string
	CourtNumber  int
	Status       models.CourtStatus
	PricePerHour float64
}

type Registry struct {
	db *gorm.DB
	cb *circuitbreaker.CircuitBreaker
}

func NewRegistry(db *gorm.DB, cb *circuitbreaker.CircuitBreaker) *Registry {
	return &Registry{db: db, cb: cb}
}

// List returns every court ordered by type, then number.
func (r *Registry) List(ctx context.Context) ([]models.Court, error) {
	courts := make([]models.Court, 0)
	err := r.cb.Execute(func() error {
		return r.db.WithContext(ctx).Order("court_type ASC, court_number ASC").Find(&courts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	return courts, nil
}

func (r *Registry) Get(ctx context.Context, id uint) (*models.Court, error) {
	var court models.Court
	err := r.cb.Execute(func() error {
		err := r.db.WithContext(ctx).First(&court, id).Error
		if database.IsRecordNotFound(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get court %d: %w", id, err)
	}
	return &court, nil
}

func (r *Registry) Create(ctx context.Context, f Fields) (*models.Court, error) {
	status, err := models.ParseCourtStatus(string(f.Status))
	if err != nil {
		return nil, err
	}
	court := models.Court{
		CourtType:    f.CourtType,
		CourtNumber:  f.CourtNumber,
		Status:       status,
		PricePerHour: f.PricePerHour,
	}
	err = r.cb.Execute(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&court).Error; err != nil {
				if database.IsDuplicateKey(err) {
					return ErrDuplicate
				}
				return err
			}
			// price_per_hour is stored as numeric(10,2); return what was stored
			return tx.First(&court, court.ID).Error
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create court: %w", err)
	}
	return &court, nil
}

// Update replaces every writable field of court id.
func (r *Registry) Update(ctx context.Context, id uint, f Fields) (*models.Court, error) {
	if !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, f.Status)
	}
	var court models.Court
	err := r.cb.Execute(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Court{}).Where("id = ?", id).Updates(map[string]interface{}{
				"court_type":     f.CourtType,
				"court_number":   f.CourtNumber,
				"status":         f.Status,
				"price_per_hour": f.PricePerHour,
			})
			if res.Error != nil {
				if database.IsDuplicateKey(res.Error) {
					return ErrDuplicate
				}
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			return tx.First(&court, id).Error
		})
	})
	if err != nil {
		if IsExpected(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update court %d: %w", id, err)
	}
	return &court, nil
}

// Delete removes court id. Deleting a missing court is not an error, and
// bookings that reference the court are left in place.
func (r *Registry) Delete(ctx context.Context, id uint) error {
	err := r.cb.Execute(func() error {
		return r.db.WithContext(ctx).Delete(&models.Court{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete court %d: %w", id, err)
	}
	return nil
}
