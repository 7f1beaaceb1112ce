package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/vision"
	"crowdwatch/internal/service/yolo"
)

// ErrDetectorClosed is returned by Detect after Close.
var ErrDetectorClosed = errors.New("detector is closed")

// DetectorService runs a YOLOv8 ONNX model through the OpenCV DNN module. A gocv.Net is not
// safe for concurrent use, so pipelines sharing a detector take turns.
type DetectorService struct {
	net       gocv.Net
	netMutex  sync.Mutex
	closed    bool
	modelPath string
	options   yolo.Options
	logger    *logger.Logger
}

// NewDetectorService loads the model named in the configuration.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		modelPath: cfg.ModelPath,
		options:   cfg.Detection(),
		logger:    logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Detect returns the people found in frame.
func (s *DetectorService) Detect(frame capture.Frame) ([]model.Detection, error) {
	f, ok := frame.(*vision.Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.Mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	size := s.options.InputSize
	blob := gocv.BlobFromImage(f.Mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.netMutex.Lock()
	defer s.netMutex.Unlock()
	if s.closed {
		return nil, ErrDetectorClosed
	}

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	detections, err := yolo.Decode(data, output.Size(), f.Mat.Cols(), f.Mat.Rows(), s.options)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Detected %d people", len(detections))
	return detections, nil
}

// Close releases the network. Detect fails with ErrDetectorClosed afterwards.
func (s *DetectorService) Close() error {
	s.netMutex.Lock()
	defer s.netMutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.net.Close()
}
