package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crowdwatch/internal/model"
	"crowdwatch/internal/repository"
)

const thresholdsKey = "occupancy_thresholds"

// SettingsRepository implements repository.SettingsRepository for SQLite.
type SettingsRepository struct {
	db  *DB
	now func() time.Time
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db, now: time.Now}
}

// SaveThresholds stores t, replacing any previous value.
func (r *SettingsRepository) SaveThresholds(t model.Thresholds) error {
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode thresholds: %w", err)
	}

	err = r.db.putSetting(thresholdsKey, string(value), r.now())
	if err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}
	return nil
}

// LoadThresholds returns the stored thresholds and when they were saved.
func (r *SettingsRepository) LoadThresholds() (model.Thresholds, time.Time, error) {
	value, updatedAt, err := r.db.getSetting(thresholdsKey)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Thresholds{}, time.Time{}, err
	}
	if err != nil {
		return model.Thresholds{}, time.Time{}, fmt.Errorf("failed to load thresholds: %w", err)
	}

	var t model.Thresholds
	if err := json.Unmarshal([]byte(value), &t); err != nil {
		return model.Thresholds{}, time.Time{}, fmt.Errorf("failed to decode thresholds: %w", err)
	}
	return t, updatedAt, nil
}
