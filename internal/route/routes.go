package route

import (
	"net/http"
	"os"
	"path/filepath"

	"crowdwatch/internal/config"
	"crowdwatch/internal/handler"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/middleware"
	"crowdwatch/internal/service/library"
	"crowdwatch/internal/service/metrics"
	"crowdwatch/internal/service/pipeline"
	"crowdwatch/internal/service/session"
	"crowdwatch/internal/service/settings"
	"crowdwatch/internal/service/websocket"
)

// Services groups everything the HTTP layer serves from.
type Services struct {
	Camera   *pipeline.Pipeline
	Registry *pipeline.Registry
	Library  *library.Library
	Hub      *websocket.HubService
	Settings *settings.Service
	Sessions *session.Store
	Metrics  *metrics.Metrics
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers streams, snapshot queries, admin endpoints and static files,
// and wraps the mux with the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	store := svc.Camera.Store()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Streams
	mux.HandleFunc("GET /video_feed", handler.LiveStreamHandler(svc.Camera, pipeline.ViewTracking, logger, svc.Metrics))
	mux.HandleFunc("GET /area_feed", handler.LiveStreamHandler(svc.Camera, pipeline.ViewArea, logger, svc.Metrics))
	mux.HandleFunc("GET /cam_feed", handler.LiveStreamHandler(svc.Camera, pipeline.ViewRaw, logger, svc.Metrics))
	mux.HandleFunc("GET /video_feed/{name}", handler.FileStreamHandler(svc.Registry, svc.Library, logger, svc.Metrics))

	// Snapshot queries
	mux.HandleFunc("GET /get_count_data", handler.CountDataHandler(store))
	mux.HandleFunc("GET /get_ratio_data", handler.RatioDataHandler(store))
	mux.HandleFunc("GET /get_ratio_code", handler.RatioCodeHandler(store))
	mux.HandleFunc("GET /detection_data_feed", handler.DetectionDataHandler(store))

	// API endpoints
	mux.HandleFunc("GET /api/snapshot", handler.SnapshotHandler(store))
	mux.HandleFunc("GET /api/videos", handler.VideosHandler(svc.Library, svc.Registry, logger))
	mux.HandleFunc("GET /api/videos/{name}/snapshot", handler.VideoSnapshotHandler(svc.Registry, svc.Library, logger))
	mux.HandleFunc("GET /api/ws", handler.SnapshotWebsocketHandler(svc.Hub, logger))
	mux.HandleFunc("GET /api/admin/thresholds", handler.GetThresholdsHandler(svc.Settings))
	mux.HandleFunc("POST /api/admin/thresholds", handler.UpdateThresholdsHandler(svc.Settings, logger))
	mux.Handle("GET /metrics", svc.Metrics.Handler())

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("GET /logs/{level}/clear", handler.ClearLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("POST /auth/login", handler.LoginHandler(cfg, svc.Sessions, logger))
	mux.HandleFunc("GET /auth/logout", handler.LogoutHandler(svc.Sessions))
	mux.HandleFunc("POST /auth/logout", handler.LogoutHandler(svc.Sessions))

	// Automatic HTML handler mapping for example: /count_view -> static/count_view.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(svc.Sessions)(mux)
}
