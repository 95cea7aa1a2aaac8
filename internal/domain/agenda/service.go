package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrMissingClinic = errors.New("clinic_id is required")

type Service struct {
	repo   SettingsRepository
	cache  *configCache
	logger zerolog.Logger
}

// NewService creates the agenda service. Normalized configs are cached per
// clinic for cacheTTL and dropped on every update made through the service.
func NewService(repo SettingsRepository, logger zerolog.Logger, cacheTTL time.Duration) *Service {
	return &Service{
		repo:   repo,
		cache:  newConfigCache(cacheTTL),
		logger: logger.With().Str("component", "agenda").Logger(),
	}
}

// GetConfig returns the canonical config of a clinic. The result is shared
// and must not be modified.
func (s *Service) GetConfig(ctx context.Context, clinicID uuid.UUID) (*Config, error) {
	if clinicID == uuid.Nil {
		return nil, ErrMissingClinic
	}
	if cfg, ok := s.cache.get(clinicID); ok {
		s.logger.Debug().Str("clinic_id", clinicID.String()).Msg("agenda config cache hit")
		return cfg, nil
	}

	raw, err := s.repo.GetRaw(ctx, clinicID)
	if errors.Is(err, ErrSettingsNotFound) {
		cfg := DefaultConfig()
		s.cache.put(clinicID, cfg)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load agenda settings: %w", err)
	}

	s.warnMalformed(clinicID, "weekly_schedule", raw.WeeklySchedule)
	s.warnMalformed(clinicID, "holidays", raw.Holidays)
	s.warnMalformed(clinicID, "schedule_exceptions", raw.Exceptions)

	cfg := NormalizeConfig(raw.WeeklySchedule, raw.Holidays, raw.Exceptions)
	s.cache.put(clinicID, cfg)
	return cfg, nil
}

func (s *Service) UpdateWeeklySchedule(ctx context.Context, clinicID uuid.UUID, raw interface{}) (WeeklySchedule, error) {
	weekly := NormalizeWeeklySchedule(raw)
	if err := s.save(ctx, clinicID, weekly, s.repo.SaveWeeklySchedule); err != nil {
		return nil, err
	}
	return weekly, nil
}

func (s *Service) UpdateHolidays(ctx context.Context, clinicID uuid.UUID, raw interface{}) ([]Holiday, error) {
	holidays := NormalizeHolidays(raw)
	if err := s.save(ctx, clinicID, holidays, s.repo.SaveHolidays); err != nil {
		return nil, err
	}
	return holidays, nil
}

func (s *Service) UpdateExceptions(ctx context.Context, clinicID uuid.UUID, raw interface{}) ([]ScheduleException, error) {
	exceptions := NormalizeExceptions(raw)
	if err := s.save(ctx, clinicID, exceptions, s.repo.SaveExceptions); err != nil {
		return nil, err
	}
	return exceptions, nil
}

// CheckAvailability validates an appointment range against the clinic agenda.
// The error is only set when the configuration could not be loaded.
func (s *Service) CheckAvailability(ctx context.Context, clinicID uuid.UUID, start, end time.Time) (bool, string, error) {
	cfg, err := s.GetConfig(ctx, clinicID)
	if err != nil {
		return false, "", err
	}
	allowed, reason := cfg.Validate(start, end)
	return allowed, reason, nil
}

func (s *Service) Calendar(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]DayStatus, error) {
	cfg, err := s.GetConfig(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	return cfg.ResolveRange(from, to)
}

func (s *Service) save(ctx context.Context, clinicID uuid.UUID, value interface{}, store func(context.Context, uuid.UUID, string) error) error {
	if clinicID == uuid.Nil {
		return ErrMissingClinic
	}
	encoded, err := Serialize(value)
	if err != nil {
		return err
	}
	if err := store(ctx, clinicID, encoded); err != nil {
		return fmt.Errorf("store agenda settings: %w", err)
	}
	s.cache.invalidate(clinicID)
	s.logger.Debug().Str("clinic_id", clinicID.String()).Msg("agenda config cache invalidated")
	return nil
}

func (s *Service) warnMalformed(clinicID uuid.UUID, column string, value *string) {
	if !IsMalformed(value) {
		return
	}
	s.logger.Warn().
		Str("clinic_id", clinicID.String()).
		Str("column", column).
		Msg("malformed agenda settings, using defaults")
}
