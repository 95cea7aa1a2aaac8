package agenda

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...interface{}) error { return r.err }

type fakeDB struct {
	rowErr  error
	execErr error
	lastSQL string
	args    []interface{}
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.lastSQL, f.args = sql, args
	return fakeRow{err: f.rowErr}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.lastSQL, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func TestSettingsRepoPG_NotFound(t *testing.T) {
	repo := &settingsRepoPG{db: &fakeDB{rowErr: pgx.ErrNoRows}}
	if _, err := repo.GetRaw(context.Background(), uuid.New()); !errors.Is(err, ErrSettingsNotFound) {
		t.Errorf("expected ErrSettingsNotFound, got %v", err)
	}
}

func TestSettingsRepoPG_QueryError(t *testing.T) {
	boom := errors.New("boom")
	repo := &settingsRepoPG{db: &fakeDB{rowErr: boom}}
	_, err := repo.GetRaw(context.Background(), uuid.New())
	if !errors.Is(err, boom) || errors.Is(err, ErrSettingsNotFound) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestSettingsRepoPG_UpsertColumns(t *testing.T) {
	db := &fakeDB{}
	repo := &settingsRepoPG{db: db}
	ctx := context.Background()
	clinicID := uuid.New()

	cases := []struct {
		column string
		save   func(context.Context, uuid.UUID, string) error
	}{
		{"weekly_schedule", repo.SaveWeeklySchedule},
		{"holidays", repo.SaveHolidays},
		{"schedule_exceptions", repo.SaveExceptions},
	}
	for _, tc := range cases {
		if err := tc.save(ctx, clinicID, "[]"); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.column, err)
		}
		if !strings.Contains(db.lastSQL, "SET "+tc.column+" = EXCLUDED."+tc.column) {
			t.Errorf("%s: unexpected SQL %s", tc.column, db.lastSQL)
		}
		if len(db.args) != 2 || db.args[0] != clinicID || db.args[1] != "[]" {
			t.Errorf("%s: unexpected args %v", tc.column, db.args)
		}
	}
}

func TestSettingsRepoPG_ExecError(t *testing.T) {
	boom := errors.New("boom")
	repo := &settingsRepoPG{db: &fakeDB{execErr: boom}}
	err := repo.SaveHolidays(context.Background(), uuid.New(), "[]")
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "save holidays") {
		t.Errorf("unexpected error %v", err)
	}
}
