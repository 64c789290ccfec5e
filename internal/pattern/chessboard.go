// Package pattern はステレオキャリブレーション用の印刷ターゲットを生成する
package pattern

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
)

// 既定値
const (
	DefaultCornersX   = 9
	DefaultCornersY   = 6
	DefaultSquareSize = 30

	// BorderSquares は四辺に付ける白い余白の幅（マス数）
	BorderSquares = 2
)

// Chessboard はチェスボードパターンの設定
// CornersX, CornersY は内側コーナーの数で、マス数はそれぞれ +1 になる
type Chessboard struct {
	CornersX   int
	CornersY   int
	SquareSize int // 1マスのピクセル数
}

// DefaultChessboard は 9x6 コーナー、30px のパターンを返す
func DefaultChessboard() Chessboard {
	return Chessboard{
		CornersX:   DefaultCornersX,
		CornersY:   DefaultCornersY,
		SquareSize: DefaultSquareSize,
	}
}

// Validate は設定を検証する
func (c Chessboard) Validate() error {
	if c.CornersX < 1 || c.CornersY < 1 {
		return fmt.Errorf("コーナー数は1以上である必要があります: %dx%d", c.CornersX, c.CornersY)
	}
	if c.SquareSize < 1 {
		return fmt.Errorf("マスのサイズは1以上である必要があります: %d", c.SquareSize)
	}
	return nil
}

// Size は余白を含めた画像サイズを返す
func (c Chessboard) Size() (width, height int) {
	border := c.SquareSize * BorderSquares
	width = (c.CornersX+1)*c.SquareSize + 2*border
	height = (c.CornersY+1)*c.SquareSize + 2*border
	return width, height
}

// Render はパターンを描画する
// 白地に、(x+y) が偶数のマスを黒で塗る。左上のマスは黒になる
func (c Chessboard) Render() (*image.Gray, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	width, height := c.Size()
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	border := c.SquareSize * BorderSquares
	black := image.NewUniform(color.Black)
	for y := 0; y <= c.CornersY; y++ {
		for x := 0; x <= c.CornersX; x++ {
			if (x+y)%2 != 0 {
				continue
			}
			px := border + x*c.SquareSize
			py := border + y*c.SquareSize
			rect := image.Rect(px, py, px+c.SquareSize, py+c.SquareSize)
			draw.Draw(img, rect, black, image.Point{}, draw.Src)
		}
	}

	return img, nil
}

// WritePNG はパターンを PNG として保存する
func (c Chessboard) WritePNG(path string) (err error) {
	img, err := c.Render()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ファイルのクローズに失敗: %w", cerr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("PNGのエンコードに失敗: %w", err)
	}
	return nil
}
