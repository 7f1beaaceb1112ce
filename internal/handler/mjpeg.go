package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/service/broadcast"
	"crowdwatch/internal/service/metrics"
)

const (
	boundary          = "frame"
	streamContentType = "multipart/x-mixed-replace; boundary=" + boundary
)

// writePart writes one JPEG as a multipart part.
func writePart(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", boundary); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// serveStream writes every new frame of slot to the client until the slot closes or the client
// goes away. A slow client skips frames instead of holding up the pipeline.
func serveStream(w http.ResponseWriter, r *http.Request, slot *broadcast.Slot[[]byte], source string, logger *logger.Logger, m *metrics.Metrics) {
	if err := slot.Err(); err != nil {
		logger.Warning("Stream %s requested after it ended: %v", source, err)
		http.Error(w, "Stream unavailable", http.StatusServiceUnavailable)
		return
	}

	release := slot.Subscribe()
	defer release()
	defer m.StreamOpened()()

	id := uuid.New()
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", streamContentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	logger.Info("Stream client %s connected to %s", id, source)

	var seq uint64
	for {
		jpeg, next, err := slot.Next(r.Context(), seq)
		if err != nil {
			if r.Context().Err() != nil {
				logger.Info("Stream client %s disconnected from %s", id, source)
			} else {
				logger.Info("Stream %s ended for client %s: %v", source, id, err)
			}
			return
		}
		seq = next

		if err := writePart(w, jpeg); err != nil {
			logger.Debug("Stream client %s write failed: %v", id, err)
			return
		}
		if err := rc.Flush(); err != nil {
			logger.Debug("Stream client %s flush failed: %v", id, err)
			return
		}
		m.PartWritten()
	}
}
