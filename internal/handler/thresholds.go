package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/settings"
)

func thresholdsResponse(t model.Thresholds, updatedAt time.Time) dto.ThresholdsResponse {
	resp := dto.ThresholdsResponse{Low: t.Low, High: t.High}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// GetThresholdsHandler handles GET /api/admin/thresholds.
func GetThresholdsHandler(svc *settings.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, thresholdsResponse(svc.Thresholds()))
	}
}

// UpdateThresholdsHandler handles POST /api/admin/thresholds. The new values take effect from the
// next processed frame.
func UpdateThresholdsHandler(svc *settings.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ThresholdsRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Low == nil && req.High == nil {
			writeError(w, http.StatusBadRequest, "low_threshold or high_threshold is required")
			return
		}

		if _, err := svc.Apply(req.Low, req.High); err != nil {
			if errors.Is(err, model.ErrInvalidThresholds) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("Failed to update thresholds: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update thresholds")
			return
		}
		writeJSON(w, http.StatusOK, thresholdsResponse(svc.Thresholds()))
	}
}
