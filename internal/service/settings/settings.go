// Package settings applies and persists the runtime-adjustable occupancy thresholds.
package settings

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/repository"
	"crowdwatch/internal/service/analytics"
)

// Service is the only writer of the shared threshold cell after startup.
type Service struct {
	cell   *analytics.ThresholdCell
	repo   repository.SettingsRepository
	logger *logger.Logger

	mu        sync.Mutex
	updatedAt time.Time
}

// NewService creates a settings service over the shared cell.
func NewService(cell *analytics.ThresholdCell, repo repository.SettingsRepository, logger *logger.Logger) *Service {
	return &Service{cell: cell, repo: repo, logger: logger}
}

// Restore applies thresholds saved by a previous run. Without saved thresholds, or when the
// saved pair is no longer valid, the configured values stay in effect.
func (s *Service) Restore() error {
	t, at, err := s.repo.LoadThresholds()
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cell.Store(t); err != nil {
		s.logger.Warning("Ignoring saved thresholds: %v", err)
		return nil
	}
	s.updatedAt = at
	s.logger.Info("Restored occupancy thresholds low=%.1f high=%.1f", t.Low, t.High)
	return nil
}

// Thresholds returns the active thresholds and when they were last changed through the admin
// path (zero if never).
func (s *Service) Thresholds() (model.Thresholds, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cell.Load(), s.updatedAt
}

// Apply merges low and high (nil keeps the current value), validates, persists and activates
// the result. Nothing changes when validation or persistence fails.
func (s *Service) Apply(low, high *float64) (model.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.cell.Load()
	if low != nil {
		t.Low = *low
	}
	if high != nil {
		t.High = *high
	}
	if err := t.Validate(); err != nil {
		return model.Thresholds{}, err
	}
	if err := s.repo.SaveThresholds(t); err != nil {
		return model.Thresholds{}, fmt.Errorf("failed to persist thresholds: %w", err)
	}
	if err := s.cell.Store(t); err != nil {
		return model.Thresholds{}, err
	}

	s.updatedAt = time.Now()
	s.logger.Info("Occupancy thresholds changed to low=%.1f high=%.1f", t.Low, t.High)
	return t, nil
}
