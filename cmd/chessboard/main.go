// Package main はキャリブレーション用チェスボード生成コマンドの実装です
package main

import (
	"flag"
	"fmt"
	"os"

	"stereocap/internal/log"
	"stereocap/internal/pattern"
)

func main() {
	// コマンドラインオプション
	var (
		width      = flag.Int("width", pattern.DefaultCornersX, "横方向の内側コーナー数")
		height     = flag.Int("height", pattern.DefaultCornersY, "縦方向の内側コーナー数")
		squareSize = flag.Int("square-size", pattern.DefaultSquareSize, "1マスのピクセル数（印刷サイズに合わせて調整）")
		out        = flag.String("out", "chessboard.png", "出力する画像のパス")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("chessboard")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  chessboard [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	board := pattern.Chessboard{
		CornersX:   *width,
		CornersY:   *height,
		SquareSize: *squareSize,
	}
	if err := board.Validate(); err != nil {
		log.Error("オプションが不正です", "error", err)
		os.Exit(2)
	}

	if err := board.WritePNG(*out); err != nil {
		log.Error("チェスボードの保存に失敗しました", "path", *out, "error", err)
		os.Exit(1)
	}

	w, h := board.Size()
	fmt.Printf("チェスボードを保存しました: %s\n", *out)
	fmt.Printf("パターン: %d × %d 内側コーナー\n", board.CornersX, board.CornersY)
	fmt.Printf("マスのサイズ: %dpx\n", board.SquareSize)
	fmt.Printf("画像サイズ: %d × %d px\n", w, h)
	fmt.Println()
	fmt.Println("拡大縮小せず 100% で印刷してください。")
	fmt.Println("平らで硬い板に貼ってキャプチャに使用してください。")
}
