package camera

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Backend はカメラソースのバックエンド種別
type Backend string

const (
	// BackendV4L2 はデバイス番号またはデバイスパスで開くV4L2ソース
	BackendV4L2 Backend = "v4l2"
	// BackendGStreamer はsensor-idから生成したパイプラインで開くCSIソース
	BackendGStreamer Backend = "gst"
)

// ParseBackend は文字列からバックエンドを解決する
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(BackendV4L2):
		return BackendV4L2, nil
	case string(BackendGStreamer), "gstreamer":
		return BackendGStreamer, nil
	default:
		return "", fmt.Errorf("サポートされていないモード: %q (gst または v4l2)", s)
	}
}

// State はソースの接続状態を表す
type State string

const (
	StateClosed State = "closed" // 未接続または解放済み
	StateOpen   State = "open"   // 読み出し可能
	StateFailed State = "failed" // オープンに失敗
)

// GStreamerバックエンドの既定値
const (
	DefaultWidth     = 1280
	DefaultHeight    = 720
	DefaultFrameRate = 30
)

// Descriptor はソースの接続記述子
type Descriptor struct {
	Backend   Backend // バックエンド種別
	Device    string  // V4L2: デバイス番号またはパス（例: 0, /dev/video0）
	SensorID  int     // GStreamer: nvarguscamerasrc の sensor-id
	Width     int     // 画像幅（0 はバックエンドの既定値）
	Height    int     // 画像高さ（0 はバックエンドの既定値）
	FrameRate int     // フレームレート（GStreamerのみ、0 は既定値）
}

// Target はログやエラー表示用の接続先文字列を返す
func (d Descriptor) Target() string {
	if d.Backend == BackendGStreamer {
		return fmt.Sprintf("sensor-id=%d", d.SensorID)
	}
	return d.Device
}

// WithDefaults はGStreamer用の既定値を補った記述子を返す
// V4L2 の 0 はドライバの既定値を意味するためそのまま残す
func (d Descriptor) WithDefaults() Descriptor {
	if d.Backend != BackendGStreamer {
		return d
	}
	if d.Width <= 0 {
		d.Width = DefaultWidth
	}
	if d.Height <= 0 {
		d.Height = DefaultHeight
	}
	if d.FrameRate <= 0 {
		d.FrameRate = DefaultFrameRate
	}
	return d
}

// Frame はデコード済みの1フレーム
// 読み出したループの1イテレーションだけが所有し、使い終わったら Close する
type Frame interface {
	Width() int
	Height() int

	// Image はフレームを image.Image に変換する
	Image() (image.Image, error)

	// Close はフレームが保持するリソースを解放する
	Close() error
}

// Source は単一の映像ストリームを表すインターフェース
type Source interface {
	// Open はストリームを開く
	Open(ctx context.Context) error

	// IsOpen は読み出し可能な状態かを返す
	IsOpen() bool

	// Read は次のフレームを1枚読み出す（内部リトライなし）
	Read() (Frame, error)

	// Release はストリームを解放する。冪等
	Release() error

	// Descriptor は接続記述子を返す
	Descriptor() Descriptor

	// State は現在の状態を返す
	State() State
}
