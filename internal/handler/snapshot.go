package handler

import (
	"net/http"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/library"
	"crowdwatch/internal/service/pipeline"
)

// CountDataHandler handles GET /get_count_data.
func CountDataHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.Message{Message: store.Load().CountMessage})
	}
}

// RatioDataHandler handles GET /get_ratio_data.
func RatioDataHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.Message{Message: store.Load().RatioMessage})
	}
}

// RatioCodeHandler handles GET /get_ratio_code.
func RatioCodeHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.Message{Message: store.Load().RatioCode})
	}
}

// DetectionDataHandler handles GET /detection_data_feed.
func DetectionDataHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.NewDetectionData(store.Load()))
	}
}

// SnapshotHandler handles GET /api/snapshot with the full camera snapshot.
func SnapshotHandler(store *analytics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Load())
	}
}

// VideoSnapshotHandler handles GET /api/videos/{name}/snapshot. Only files with a running
// pipeline have a snapshot.
func VideoSnapshotHandler(registry *pipeline.Registry, lib *library.Library, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, err := lib.Resolve(name); err != nil {
			writeLibraryError(w, logger, err)
			return
		}

		p, ok := registry.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "video is not being streamed")
			return
		}
		writeJSON(w, http.StatusOK, p.Store().Load())
	}
}
