package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
)

// ShowLogsHandler handles GET /logs/{level} by serving that level's log file as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileName, ok := loggerFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		filePath := filepath.Join(logger.Dir(), fileName)
		if _, err := os.Stat(filePath); logger.Dir() == "" || errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Log file not found: "+fileName, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler handles /logs/{level}/clear by truncating that level's log file.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileName, ok := loggerFile(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := logger.CleanLogs(r.PathValue("level")); err != nil {
			logger.Error("Failed to clear logs: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to clear "+fileName)
			return
		}
		writeJSON(w, http.StatusOK, dto.Message{Message: fileName + " cleared"})
	}
}

func loggerFile(r *http.Request) (string, bool) {
	return logger.FileName(r.PathValue("level"))
}
