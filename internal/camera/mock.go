package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

// MockSource はテスト用のモックSource実装
// ScriptReads で読み出し結果を順番に指定できる。スクリプトを使い切った後は常に成功する
type MockSource struct {
	*BaseSource

	// OpenErr は Open が返すエラー
	OpenErr error
	// ReleaseErr は最初の Release が返すエラー
	ReleaseErr error
	// FailAlways は全ての読み出しを失敗させる
	FailAlways bool
	// OnRead は読み出しのたびに呼ばれる（n は1始まりの読み出し回数）
	OnRead func(n int)

	mu        sync.Mutex
	script    []error
	reads     int
	opens     int
	releases  int
	liveFrame atomic.Int64
	shade     uint8
}

// NewMockSource は新しいMockSourceを作成する
func NewMockSource(desc Descriptor) *MockSource {
	return &MockSource{
		BaseSource: NewBaseSource(desc),
	}
}

// ScriptReads は読み出し結果を順番に設定する（nil は成功）
func (m *MockSource) ScriptReads(results ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, results...)
}

// Open はモックストリームを開く
func (m *MockSource) Open(_ context.Context) error {
	m.mu.Lock()
	m.opens++
	m.mu.Unlock()

	if m.OpenErr != nil {
		m.SetState(StateFailed)
		return NewOpenError(m.Descriptor(), m.OpenErr)
	}
	m.SetState(StateOpen)
	return nil
}

// Read はスクリプトに従ってフレームを返す
func (m *MockSource) Read() (Frame, error) {
	m.mu.Lock()
	m.reads++
	n := m.reads
	var result error
	if len(m.script) > 0 {
		result = m.script[0]
		m.script = m.script[1:]
	}
	m.shade++
	shade := m.shade
	hook := m.OnRead
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	if !m.IsOpen() {
		return nil, fmt.Errorf("%w: %w", ErrReadTimeout, ErrNotOpen)
	}
	if m.FailAlways {
		return nil, ErrReadTimeout
	}
	if result != nil {
		return nil, result
	}

	desc := m.Descriptor()
	width, height := desc.Width, desc.Height
	if width <= 0 {
		width = 8
	}
	if height <= 0 {
		height = 6
	}

	m.liveFrame.Add(1)
	return &MockFrame{
		width:  width,
		height: height,
		shade:  shade,
		onClose: func() {
			m.liveFrame.Add(-1)
		},
	}, nil
}

// Release はモックストリームを解放する。呼び出し回数は全て記録する
func (m *MockSource) Release() error {
	m.mu.Lock()
	m.releases++
	m.mu.Unlock()

	if !m.BeginRelease() {
		return nil
	}
	return m.ReleaseErr
}

// Reads は Read の呼び出し回数を返す
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Opens は Open の呼び出し回数を返す
func (m *MockSource) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Releases は Release の呼び出し回数を返す
func (m *MockSource) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// LiveFrames は Close されていないフレーム数を返す
func (m *MockSource) LiveFrames() int64 {
	return m.liveFrame.Load()
}

// MockFrame はテスト用の単色フレーム
type MockFrame struct {
	width   int
	height  int
	shade   uint8
	closed  bool
	onClose func()
}

// NewMockFrame は単色のモックフレームを作成する
func NewMockFrame(width, height int, shade uint8) *MockFrame {
	return &MockFrame{width: width, height: height, shade: shade}
}

// Width は画像幅を返す
func (f *MockFrame) Width() int { return f.width }

// Height は画像高さを返す
func (f *MockFrame) Height() int { return f.height }

// Image は単色の画像を返す
func (f *MockFrame) Image() (image.Image, error) {
	if f.closed {
		return nil, fmt.Errorf("フレームは既に解放されています")
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	c := color.RGBA{R: f.shade, G: f.shade, B: f.shade, A: 255}
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// Close はフレームを解放する
func (f *MockFrame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.onClose != nil {
		f.onClose()
	}
	return nil
}
