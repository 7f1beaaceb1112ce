package handler

import (
	"errors"
	"net/http"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/service/library"
	"crowdwatch/internal/service/metrics"
	"crowdwatch/internal/service/pipeline"
)

// LiveStreamHandler streams one view of an always-on pipeline.
func LiveStreamHandler(p *pipeline.Pipeline, view pipeline.View, logger *logger.Logger, m *metrics.Metrics) http.HandlerFunc {
	source := p.Name() + "/" + string(view)
	return func(w http.ResponseWriter, r *http.Request) {
		serveStream(w, r, p.Slot(view), source, logger, m)
	}
}

// FileStreamHandler handles GET /video_feed/{name} by streaming the tracking view of a file
// pipeline. The pipeline starts with its first viewer and stops after its last.
func FileStreamHandler(registry *pipeline.Registry, lib *library.Library, logger *logger.Logger, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, err := lib.Resolve(name); err != nil {
			writeLibraryError(w, logger, err)
			return
		}

		p, release, err := registry.Acquire(name)
		if err != nil {
			logger.Error("Failed to start stream for %s: %v", name, err)
			http.Error(w, "Failed to open video", http.StatusInternalServerError)
			return
		}
		defer release()

		serveStream(w, r, p.Slot(pipeline.ViewTracking), name, logger, m)
	}
}

func writeLibraryError(w http.ResponseWriter, logger *logger.Logger, err error) {
	switch {
	case errors.Is(err, library.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid video name")
	case errors.Is(err, library.ErrNotFound):
		writeError(w, http.StatusNotFound, "video not found")
	default:
		logger.Error("Video lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "video lookup failed")
	}
}
