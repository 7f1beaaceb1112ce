// Package vision adapts OpenCV capture devices and video files to capture.Source.
package vision

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"crowdwatch/internal/service/capture"
)

// Frame wraps a decoded OpenCV image.
type Frame struct {
	Mat gocv.Mat
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() (int, int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Source reads frames from a gocv.VideoCapture.
type Source struct {
	name    string
	capture *gocv.VideoCapture
}

// OpenCamera opens a capture device by index.
func OpenCamera(index int) (*Source, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", index)
	}
	return &Source{name: fmt.Sprintf("camera %d", index), capture: vc}, nil
}

// OpenFile opens a video file for playback.
func OpenFile(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video %s cannot be decoded", path)
	}
	return &Source{name: path, capture: vc}, nil
}

// CameraOpener returns an Opener for a capture device.
func CameraOpener(index int) capture.Opener {
	return func() (capture.Source, error) {
		return OpenCamera(index)
	}
}

// FrameInterval is the playback time of one frame, or zero when the container does not say.
func (s *Source) FrameInterval() time.Duration {
	fps := s.capture.Get(gocv.VideoCaptureFPS)
	if !(fps > 0 && fps <= 240) {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// FileOpener returns an Opener that replays a video file forever at its own frame rate.
func FileOpener(path string) capture.Opener {
	return func() (capture.Source, error) {
		var interval time.Duration
		looped, err := capture.Loop(func() (capture.Source, error) {
			src, err := OpenFile(path)
			if err != nil {
				return nil, err
			}
			if interval == 0 {
				interval = src.FrameInterval()
			}
			return src, nil
		})
		if err != nil {
			return nil, err
		}
		return capture.Paced(looped, interval), nil
	}
}

// Read returns the next frame, or capture.ErrEndOfStream when the device or file has none.
func (s *Source) Read() (capture.Frame, error) {
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%s: %w", s.name, capture.ErrEndOfStream)
	}
	return &Frame{Mat: mat}, nil
}

// Close releases the device or file.
func (s *Source) Close() error {
	return s.capture.Close()
}
