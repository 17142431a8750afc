package models

import (
	"time"
)

type Court struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CourtType    string      `gorm:"size:50;not null;uniqueIndex:idx_courts_type_number" json:"court_type"`
	CourtNumber  int         `gorm:"not null;uniqueIndex:idx_courts_type_number;check:court_number > 0" json:"court_number"`
	Status       CourtStatus `gorm:"size:20;not null;default:'available';check:chk_courts_status,status IN ('available','unavailable')" json:"status"`
	PricePerHour float64     `gorm:"type:numeric(10,2);not null;check:price_per_hour >= 0" json:"price_per_hour"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Booking references its court by (CourtType, CourtNumber) rather than by Court.ID.
type Booking struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	CourtType   string    `gorm:"size:50;not null;index:idx_bookings_slot" json:"court_type"`
	CourtNumber int       `gorm:"not null;index:idx_bookings_slot" json:"court_number"`
	Date        Date      `gorm:"type:date;not null;index:idx_bookings_slot" json:"date"`
	TimeStart   Clock     `gorm:"type:time;not null" json:"time_start"`
	TimeEnd     Clock     `gorm:"type:time;not null;check:chk_bookings_time_order,time_start < time_end" json:"time_end"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Range returns the booked interval. Rows written through the ledger always
// satisfy TimeStart < TimeEnd.
func (b Booking) Range() TimeRange {
	return TimeRange{start: b.TimeStart, end: b.TimeEnd}
}

// Slot identifies the court-day a booking competes for.
type Slot struct {
	CourtType   string
	CourtNumber int
	Date        Date
}

func (b Booking) Slot() Slot {
	return Slot{CourtType: b.CourtType, CourtNumber: b.CourtNumber, Date: b.Date}
}
