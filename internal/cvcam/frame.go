package cvcam

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"stereocap/internal/camera"
	"stereocap/internal/storage"
)

var _ camera.Frame = (*Frame)(nil)

// Frame は gocv.Mat（BGR24）を保持するフレーム
type Frame struct {
	mat    gocv.Mat
	closed bool
}

// Width は画像幅を返す
func (f *Frame) Width() int {
	return f.mat.Cols()
}

// Height は画像高さを返す
func (f *Frame) Height() int {
	return f.mat.Rows()
}

// Mat は内部の Mat を返す。フレームを Close した後は使えない
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Image は Mat を image.Image に変換する
func (f *Frame) Image() (image.Image, error) {
	if f.closed {
		return nil, fmt.Errorf("フレームは既に解放されています")
	}
	return f.mat.ToImage()
}

// Close は Mat を解放する
func (f *Frame) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.mat.Close()
}

// Encoder は gocv.IMWrite でフレームを画像ファイルに書き出す
// Mat を持たないフレームは Fallback に任せる
type Encoder struct {
	Fallback storage.Encoder
}

// NewEncoder は標準のPNGエンコーダーをフォールバックに持つ Encoder を作成する
func NewEncoder() *Encoder {
	return &Encoder{Fallback: storage.PNGEncoder{}}
}

// Encode はフレームを path に書き出す。形式は拡張子で決まる
func (e *Encoder) Encode(path string, frame camera.Frame) error {
	f, ok := frame.(*Frame)
	if !ok {
		if e.Fallback == nil {
			return fmt.Errorf("サポートされていないフレーム型: %T", frame)
		}
		return e.Fallback.Encode(path, frame)
	}

	if f.closed || f.mat.Empty() {
		return fmt.Errorf("空のフレームは書き出せません: %s", path)
	}
	if !gocv.IMWrite(path, f.mat) {
		return fmt.Errorf("画像の書き込みに失敗: %s", path)
	}
	return nil
}
