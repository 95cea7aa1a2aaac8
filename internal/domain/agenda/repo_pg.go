package agenda

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type settingsRepoPG struct{ db queryable }

func NewSettingsRepoPG(pool *pgxpool.Pool) SettingsRepository { return &settingsRepoPG{db: pool} }

func (r *settingsRepoPG) GetRaw(ctx context.Context, clinicID uuid.UUID) (*RawSettings, error) {
	var s RawSettings
	err := r.db.QueryRow(ctx, `
		SELECT clinic_id, weekly_schedule, holidays, schedule_exceptions, updated_at
		FROM clinic_agenda_settings WHERE clinic_id = $1`, clinicID).
		Scan(&s.ClinicID, &s.WeeklySchedule, &s.Holidays, &s.Exceptions, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select agenda settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepoPG) SaveWeeklySchedule(ctx context.Context, clinicID uuid.UUID, value string) error {
	return r.upsert(ctx, "weekly_schedule", clinicID, value)
}

func (r *settingsRepoPG) SaveHolidays(ctx context.Context, clinicID uuid.UUID, value string) error {
	return r.upsert(ctx, "holidays", clinicID, value)
}

func (r *settingsRepoPG) SaveExceptions(ctx context.Context, clinicID uuid.UUID, value string) error {
	return r.upsert(ctx, "schedule_exceptions", clinicID, value)
}

// upsert writes one column. column is always one of the constants above.
func (r *settingsRepoPG) upsert(ctx context.Context, column string, clinicID uuid.UUID, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO clinic_agenda_settings (clinic_id, %[1]s, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (clinic_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()`, column)
	if _, err := r.db.Exec(ctx, query, clinicID, value); err != nil {
		return fmt.Errorf("save %s: %w", column, err)
	}
	return nil
}
