package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSettingsNotFound = errors.New("agenda settings not found")

// RawSettings holds the persisted JSON columns exactly as stored. A nil
// column was never written.
type RawSettings struct {
	ClinicID       uuid.UUID
	WeeklySchedule *string
	Holidays       *string
	Exceptions     *string
	UpdatedAt      time.Time
}

type SettingsRepository interface {
	GetRaw(ctx context.Context, clinicID uuid.UUID) (*RawSettings, error)
	SaveWeeklySchedule(ctx context.Context, clinicID uuid.UUID, value string) error
	SaveHolidays(ctx context.Context, clinicID uuid.UUID, value string) error
	SaveExceptions(ctx context.Context, clinicID uuid.UUID, value string) error
}
