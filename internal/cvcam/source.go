// Package cvcam はOpenCV（gocv）を使った camera.Source の実装を提供する
//
// V4L2 はデバイス番号またはパスを、GStreamer は nvarguscamerasrc の
// パイプライン文字列を VideoCapture に渡して開く。
package cvcam

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"stereocap/internal/camera"
)

var _ camera.Source = (*Source)(nil)

// Source は gocv.VideoCapture を使った Source 実装
type Source struct {
	*camera.BaseSource

	discovery camera.Discovery
	capture   *gocv.VideoCapture
	mu        sync.Mutex
}

// NewSource は記述子から Source を作成する（まだ開かない）
func NewSource(desc camera.Descriptor, discovery camera.Discovery) *Source {
	return &Source{
		BaseSource: camera.NewBaseSource(desc),
		discovery:  discovery,
	}
}

// Register は V4L2 と GStreamer の作成関数をファクトリーに登録する
func Register(factory *camera.DefaultFactory, discovery camera.Discovery) {
	creator := func(desc camera.Descriptor) (camera.Source, error) {
		return NewSource(desc, discovery), nil
	}
	factory.Register(camera.BackendV4L2, creator)
	factory.Register(camera.BackendGStreamer, creator)
}

// captureTarget は VideoCapture に渡す接続先とAPIを決定する
func captureTarget(desc camera.Descriptor) (interface{}, gocv.VideoCaptureAPI, error) {
	switch desc.Backend {
	case camera.BackendV4L2:
		target := camera.ResolveV4L2Target(desc.Device)
		if target.IsIndex {
			return target.Index, gocv.VideoCaptureV4L2, nil
		}
		return target.Path, gocv.VideoCaptureV4L2, nil
	case camera.BackendGStreamer:
		return desc.Pipeline(), gocv.VideoCaptureGstreamer, nil
	default:
		return nil, gocv.VideoCaptureAny, fmt.Errorf("%w: %s", camera.ErrUnsupportedBackend, desc.Backend)
	}
}

// Open はストリームを開く
func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil && s.IsOpen() {
		return nil // 既に開いている
	}
	if s.capture != nil {
		// 前回失敗したハンドルを捨てて開き直す
		_ = s.capture.Close()
		s.capture = nil
	}

	desc := s.Descriptor()

	if desc.Backend == camera.BackendV4L2 && s.discovery != nil {
		if err := camera.CheckV4L2Device(ctx, s.discovery, desc.Device); err != nil {
			s.SetState(camera.StateFailed)
			return camera.NewOpenError(desc, err)
		}
	}

	target, api, err := captureTarget(desc)
	if err != nil {
		s.SetState(camera.StateFailed)
		return camera.NewOpenError(desc, err)
	}

	capture, err := gocv.OpenVideoCaptureWithAPI(target, api)
	if err != nil {
		s.SetState(camera.StateFailed)
		return camera.NewOpenError(desc, err)
	}
	s.capture = capture

	if !capture.IsOpened() {
		s.SetState(camera.StateFailed)
		return camera.NewOpenError(desc, errors.New("VideoCaptureを開けませんでした"))
	}

	// V4L2 は解像度の上書きをキャプチャプロパティで指定する
	if desc.Backend == camera.BackendV4L2 {
		if desc.Width > 0 {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(desc.Width))
		}
		if desc.Height > 0 {
			capture.Set(gocv.VideoCaptureFrameHeight, float64(desc.Height))
		}
	}

	s.SetState(camera.StateOpen)
	return nil
}

// Read は次のフレームを1枚読み出す
func (s *Source) Read() (camera.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil || !s.IsOpen() {
		return nil, fmt.Errorf("%w: %w", camera.ErrReadTimeout, camera.ErrNotOpen)
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		return nil, camera.ErrReadTimeout
	}

	return &Frame{mat: mat}, nil
}

// Release はストリームを解放する
func (s *Source) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.BeginRelease() {
		return nil // 既に解放済み
	}

	if s.capture == nil {
		return nil
	}

	capture := s.capture
	s.capture = nil
	if err := capture.Close(); err != nil {
		return fmt.Errorf("VideoCaptureの解放に失敗 (%s): %w", s.Descriptor().Target(), err)
	}
	return nil
}
