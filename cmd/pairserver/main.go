// Package main は保存済みペアを配信するサーバーコマンドの実装です
// キャプチャ後の出力ディレクトリをブラウザやスクリプトから確認するために使う
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"stereocap/internal/config"
	"stereocap/internal/log"
	"stereocap/internal/server"
	"stereocap/internal/storage"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "YAML設定ファイルのパス")
		out        = flag.String("out", "", "配信するディレクトリ (デフォルト: data/pairs)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8090)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("pairserver")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  pairserver [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(2)
	}

	// コマンドラインオプションで設定を上書き
	if *out != "" {
		cfg.Out = *out
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	cfg.Server.Enabled = true

	log.Init(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		log.Error("無効なポート番号です", "port", cfg.Server.Port)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// セッションを持たないので状態は配信しない
	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg, nil, storage.NewStore(cfg.Out, nil))

	log.Info("ペア配信サーバーを起動します", "addr", cfg.ServerAddress(), "dir", cfg.Out)
	if err := srv.Start(ctx); err != nil {
		log.Error("サーバーの起動に失敗しました", "error", err)
		stop()
		os.Exit(1)
	}
}
