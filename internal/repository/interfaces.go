package repository

import (
	"errors"
	"time"

	"crowdwatch/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SettingsRepository persists runtime settings changed through the admin API.
type SettingsRepository interface {
	SaveThresholds(t model.Thresholds) error
	// LoadThresholds returns ErrNotFound until thresholds have been saved once.
	LoadThresholds() (model.Thresholds, time.Time, error)
}
