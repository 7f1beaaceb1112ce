package handler

import (
	"net/http"
	"net/url"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/service/library"
	"crowdwatch/internal/service/pipeline"
)

// VideosHandler handles GET /api/videos by listing playable files and whether each is streaming.
func VideosHandler(lib *library.Library, registry *pipeline.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := lib.List()
		if err != nil {
			logger.Error("Failed to list videos: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list videos")
			return
		}

		list := dto.VideoList{Videos: make([]dto.VideoInfo, 0, len(videos)), Count: len(videos)}
		for _, v := range videos {
			escaped := url.PathEscape(v.Name)
			_, active := registry.Lookup(v.Name)
			list.Videos = append(list.Videos, dto.VideoInfo{
				Name:        v.Name,
				Size:        v.Size,
				ModifiedAt:  v.ModifiedAt,
				StreamURL:   "/video_feed/" + escaped,
				SnapshotURL: "/api/videos/" + escaped + "/snapshot",
				Active:      active,
			})
		}
		writeJSON(w, http.StatusOK, list)
	}
}
