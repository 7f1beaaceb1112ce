package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/repository"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/settings"
)

type settingsRepo struct {
	saved   []model.Thresholds
	saveErr error
}

func (r *settingsRepo) SaveThresholds(t model.Thresholds) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, t)
	return nil
}

func (r *settingsRepo) LoadThresholds() (model.Thresholds, time.Time, error) {
	return model.Thresholds{}, time.Time{}, repository.ErrNotFound
}

func newSettings(t *testing.T, repo *settingsRepo) (*settings.Service, *analytics.ThresholdCell) {
	t.Helper()
	cell, err := analytics.NewThresholdCell(model.Thresholds{Low: 30, High: 70})
	require.NoError(t, err)
	return settings.NewService(cell, repo, logger.Discard()), cell
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/thresholds", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestGetThresholdsHandler(t *testing.T) {
	svc, _ := newSettings(t, &settingsRepo{})
	rec := get(t, GetThresholdsHandler(svc), "/api/admin/thresholds", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"low_threshold":30,"high_threshold":70}`, rec.Body.String())
}

func TestUpdateThresholdsHandler(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		saveErr error
		want    int
		active  model.Thresholds
	}{
		{name: "both", body: `{"low_threshold":10,"high_threshold":20}`, want: http.StatusOK, active: model.Thresholds{Low: 10, High: 20}},
		{name: "high only", body: `{"high_threshold":90}`, want: http.StatusOK, active: model.Thresholds{Low: 30, High: 90}},
		{name: "out of order", body: `{"low_threshold":80}`, want: http.StatusBadRequest, active: model.Thresholds{Low: 30, High: 70}},
		{name: "out of range", body: `{"high_threshold":120}`, want: http.StatusBadRequest, active: model.Thresholds{Low: 30, High: 70}},
		{name: "empty", body: `{}`, want: http.StatusBadRequest, active: model.Thresholds{Low: 30, High: 70}},
		{name: "garbage", body: `low=1`, want: http.StatusBadRequest, active: model.Thresholds{Low: 30, High: 70}},
		{name: "storage down", body: `{"low_threshold":5}`, saveErr: errors.New("readonly"), want: http.StatusInternalServerError, active: model.Thresholds{Low: 30, High: 70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, cell := newSettings(t, &settingsRepo{saveErr: tt.saveErr})

			rec := post(UpdateThresholdsHandler(svc, logger.Discard()), tt.body)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.active, cell.Load())
			if tt.want == http.StatusOK {
				var resp dto.ThresholdsResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.active.Low, resp.Low)
				assert.Equal(t, tt.active.High, resp.High)
				assert.NotNil(t, resp.UpdatedAt)
			}
		})
	}
}
