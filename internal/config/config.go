package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"crowdwatch/internal/model"
	"crowdwatch/internal/service/tracker"
	"crowdwatch/internal/service/yolo"
)

// Config is loaded once at startup. Only the occupancy thresholds change afterwards, through
// the admin API.
type Config struct {
	Host string
	Port int

	CameraIndex int
	ModelPath   string
	InputSize   int
	Confidence  float64
	NMSIoU      float64

	DistanceFunction    string
	DistanceThreshold   float64
	HitCounterMax       int
	InitializationDelay int // negative selects HitCounterMax/2

	LowThreshold  float64
	HighThreshold float64

	JPEGQuality     int
	VideoDirectory  string
	StaticDirectory string
	LogDirectory    string
	LogLevel        string
	DatabasePath    string
	Password        string
	ShutdownTimeout time.Duration
}

// fileConfig is the layout of config.json.
type fileConfig struct {
	Server struct {
		Host  string `json:"host"`
		Port  int    `json:"port"`
		Debug bool   `json:"debug"`
	} `json:"server"`
	Camera struct {
		Index int `json:"index"`
	} `json:"camera"`
	Model struct {
		Path string `json:"path"`
	} `json:"model"`
	Tracker struct {
		DistanceFunction  string  `json:"distance_function"`
		DistanceThreshold float64 `json:"distance_threshold"`
	} `json:"tracker"`
	ComplexRatio struct {
		LowThreshold  float64 `json:"low_threshold"`
		HighThreshold float64 `json:"high_threshold"`
	} `json:"complex_ratio"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	tc := tracker.DefaultConfig()
	yo := yolo.DefaultOptions()
	return &Config{
		Host:                "0.0.0.0",
		Port:                5000,
		CameraIndex:         0,
		ModelPath:           filepath.Join(".", "models", "yolov8n.onnx"),
		InputSize:           yo.InputSize,
		Confidence:          yo.Confidence,
		NMSIoU:              yo.IoU,
		DistanceFunction:    tc.DistanceFunction,
		DistanceThreshold:   tc.DistanceThreshold,
		HitCounterMax:       tc.HitCounterMax,
		InitializationDelay: tc.InitializationDelay,
		LowThreshold:        30,
		HighThreshold:       70,
		JPEGQuality:         80,
		VideoDirectory:      filepath.Join(".", "static", "videos"),
		StaticDirectory:     "static",
		LogDirectory:        filepath.Join(".", "logs"),
		LogLevel:            "info",
		DatabasePath:        filepath.Join(".", "crowdwatch.db"),
		Password:            "admin",
		ShutdownTimeout:     10 * time.Second,
	}
}

// Load reads .env (if present), then the JSON file named by CONFIG_FILE (default config.json,
// optional unless named explicitly), then environment variables, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit {
		path = "config.json"
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	fc.Server.Host = c.Host
	fc.Server.Port = c.Port
	fc.Camera.Index = c.CameraIndex
	fc.Model.Path = c.ModelPath
	fc.Tracker.DistanceFunction = c.DistanceFunction
	fc.Tracker.DistanceThreshold = c.DistanceThreshold
	fc.ComplexRatio.LowThreshold = c.LowThreshold
	fc.ComplexRatio.HighThreshold = c.HighThreshold

	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.Host = fc.Server.Host
	c.Port = fc.Server.Port
	c.CameraIndex = fc.Camera.Index
	c.ModelPath = fc.Model.Path
	c.DistanceFunction = fc.Tracker.DistanceFunction
	c.DistanceThreshold = fc.Tracker.DistanceThreshold
	c.LowThreshold = fc.ComplexRatio.LowThreshold
	c.HighThreshold = fc.ComplexRatio.HighThreshold
	if fc.Server.Debug {
		c.LogLevel = "debug"
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.CameraIndex = getEnvAsInt("CAMERA_INDEX", c.CameraIndex)
	c.ModelPath = getEnv("MODEL_PATH", c.ModelPath)
	c.InputSize = getEnvAsInt("MODEL_INPUT_SIZE", c.InputSize)
	c.Confidence = getEnvAsFloat("DETECTION_CONFIDENCE", c.Confidence)
	c.NMSIoU = getEnvAsFloat("NMS_IOU", c.NMSIoU)
	c.DistanceFunction = getEnv("TRACKER_DISTANCE_FUNCTION", c.DistanceFunction)
	c.DistanceThreshold = getEnvAsFloat("TRACKER_DISTANCE_THRESHOLD", c.DistanceThreshold)
	c.HitCounterMax = getEnvAsInt("TRACKER_HIT_COUNTER_MAX", c.HitCounterMax)
	c.InitializationDelay = getEnvAsInt("TRACKER_INITIALIZATION_DELAY", c.InitializationDelay)
	c.LowThreshold = getEnvAsFloat("LOW_THRESHOLD", c.LowThreshold)
	c.HighThreshold = getEnvAsFloat("HIGH_THRESHOLD", c.HighThreshold)
	c.JPEGQuality = getEnvAsInt("JPEG_QUALITY", c.JPEGQuality)
	c.VideoDirectory = getEnv("VIDEO_DIR", c.VideoDirectory)
	c.StaticDirectory = getEnv("STATIC_DIR", c.StaticDirectory)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.Password = getEnv("PASSWORD", c.Password)
	c.ShutdownTimeout = time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT", int(c.ShutdownTimeout/time.Second))) * time.Second
}

// Validate rejects configurations no pipeline could start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("invalid model input size %d", c.InputSize)
	}
	if !(c.Confidence > 0 && c.Confidence < 1) {
		return fmt.Errorf("detection confidence %v must be within (0,1)", c.Confidence)
	}
	if !(c.NMSIoU > 0 && c.NMSIoU <= 1) {
		return fmt.Errorf("NMS IoU %v must be within (0,1]", c.NMSIoU)
	}
	if _, err := tracker.New(c.Tracker()); err != nil {
		return fmt.Errorf("invalid tracker configuration: %w", err)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG quality %d must be within [1,100]", c.JPEGQuality)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Thresholds returns the configured occupancy thresholds.
func (c *Config) Thresholds() model.Thresholds {
	return model.Thresholds{Low: c.LowThreshold, High: c.HighThreshold}
}

// Tracker returns the tracker settings.
func (c *Config) Tracker() tracker.Config {
	return tracker.Config{
		DistanceFunction:    c.DistanceFunction,
		DistanceThreshold:   c.DistanceThreshold,
		HitCounterMax:       c.HitCounterMax,
		InitializationDelay: c.InitializationDelay,
	}
}

// Detection returns the YOLO decoding settings.
func (c *Config) Detection() yolo.Options {
	return yolo.Options{
		InputSize:  c.InputSize,
		Confidence: c.Confidence,
		IoU:        c.NMSIoU,
		ClassID:    model.PersonClassID,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
