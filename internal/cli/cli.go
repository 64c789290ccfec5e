// Package cli はステレオペアキャプチャコマンドの本体を提供する
// カメラの実装は呼び出し側から注入する
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stereocap/internal/camera"
	"stereocap/internal/capture"
	"stereocap/internal/config"
	"stereocap/internal/log"
	"stereocap/internal/server"
	"stereocap/internal/storage"
)

// 終了コード
const (
	ExitOK          = 0 // 完了または中断
	ExitOpenFailure = 1 // カメラを開けなかった
	ExitUsage       = 2 // 設定・引数の誤り
	ExitAborted     = 3 // 保存エラーまたはリトライ上限
)

// App は CLI の実行に必要な依存をまとめる
type App struct {
	Factory   camera.SourceFactory
	Discovery camera.Discovery
	Encoder   storage.Encoder // nil の場合は storage.PNGEncoder
	Stdout    io.Writer
	Stderr    io.Writer
}

// Run は引数を解釈してキャプチャを実行し、終了コードを返す
func (a App) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("stereocap", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)

	// コマンドラインオプション
	var (
		configPath  = fs.String("config", "", "YAML設定ファイルのパス")
		mode        = fs.String("mode", "", "キャプチャ方式 (gst または v4l2、デフォルト: gst)")
		left        = fs.String("left", "", "左カメラのデバイス番号またはパス (v4l2)")
		right       = fs.String("right", "", "右カメラのデバイス番号またはパス (v4l2)")
		leftID      = fs.Int("left-id", -1, "左カメラのセンサーID (gst)")
		rightID     = fs.Int("right-id", -1, "右カメラのセンサーID (gst)")
		out         = fs.String("out", "", "出力ディレクトリ (デフォルト: data/pairs)")
		count       = fs.Int("count", 0, "保存するペア数 (デフォルト: 100)")
		width       = fs.Int("width", 0, "画像幅")
		height      = fs.Int("height", 0, "画像高さ")
		framerate   = fs.Int("framerate", 0, "フレームレート (gst)")
		backoff     = fs.Duration("backoff", 0, "読み出し失敗後の待機時間 (デフォルト: 10ms)")
		maxAttempts = fs.Int("max-attempts", 0, "同じペアでの連続失敗の上限 (0 は無制限)")
		maxElapsed  = fs.Duration("max-elapsed", 0, "同じペアでの失敗継続時間の上限 (0 は無制限)")
		serve       = fs.Bool("server", false, "状態確認用HTTPサーバーを起動する")
		host        = fs.String("host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
		port        = fs.Int("port", 0, "サーバーのポート (デフォルト: 8090)")
		logLevel    = fs.String("log-level", "", "ログレベル (debug, info, warn, error)")
		list        = fs.Bool("list", false, "V4L2デバイスの一覧を表示して終了")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
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
		fmt.Fprintf(a.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		return ExitUsage
	}

	// 明示されたオプションだけで設定を上書き
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Camera.Mode = *mode
		case "left":
			cfg.Camera.Left = *left
		case "right":
			cfg.Camera.Right = *right
		case "left-id":
			cfg.Camera.LeftID = leftID
		case "right-id":
			cfg.Camera.RightID = rightID
		case "out":
			cfg.Out = *out
		case "count":
			cfg.Capture.Count = *count
		case "width":
			cfg.Camera.Width = *width
		case "height":
			cfg.Camera.Height = *height
		case "framerate":
			cfg.Camera.FrameRate = *framerate
		case "backoff":
			cfg.Capture.Retry.Backoff = *backoff
		case "max-attempts":
			cfg.Capture.Retry.MaxAttempts = *maxAttempts
		case "max-elapsed":
			cfg.Capture.Retry.MaxElapsed = *maxElapsed
		case "server":
			cfg.Server.Enabled = *serve
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	log.Init(log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: a.Stderr})

	if *list {
		return a.listDevices(ctx)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(a.Stderr, err)
		fmt.Fprintln(a.Stderr, "gst モードでは -left-id と -right-id を、v4l2 モードでは -left と -right を指定してください")
		return ExitUsage
	}

	leftDesc, rightDesc, err := cfg.Descriptors()
	if err != nil {
		fmt.Fprintln(a.Stderr, err)
		return ExitUsage
	}

	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		log.Error("出力ディレクトリの作成に失敗しました", "dir", cfg.Out, "error", err)
		return ExitAborted
	}

	return a.capturePairs(ctx, cfg, leftDesc, rightDesc)
}

// capturePairs はセッションを実行し、結果を終了コードに変換する
func (a App) capturePairs(ctx context.Context, cfg *config.Config, leftDesc, rightDesc camera.Descriptor) int {
	sessionID := uuid.NewString()
	store := storage.NewStore(cfg.Out, a.Encoder)
	tracker := capture.NewTracker(sessionID, cfg.Capture.Count)

	observer := capture.MultiObserver{
		capture.LogObserver{SessionID: sessionID},
		tracker,
		printObserver{w: a.Stdout},
	}
	session := capture.NewSession(a.Factory, leftDesc, rightDesc, store, cfg.Capture,
		capture.WithObserver(observer),
		capture.WithSessionID(sessionID))

	// 状態確認用サーバーはセッション終了とともに停止する
	serverDone := make(chan struct{})
	serverCtx, stopServer := context.WithCancel(context.Background())
	if cfg.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		srv := server.New(cfg, tracker, store)
		go func() {
			defer close(serverDone)
			if err := srv.Start(serverCtx); err != nil {
				log.Error("状態確認サーバーが停止しました", "error", err)
			}
		}()
	} else {
		close(serverDone)
	}
	defer func() {
		stopServer()
		<-serverDone
	}()

	fmt.Fprintln(a.Stdout, "ペアをキャプチャしています。Ctrl-C で停止します")
	started := time.Now()

	result, err := session.Run(ctx)
	if result.ReleaseErr != nil {
		log.Warn("カメラの解放でエラーが発生しました", "session", sessionID, "error", result.ReleaseErr)
	}

	if err != nil {
		var openErr *camera.OpenError
		switch {
		case errors.As(err, &openErr):
			log.Error("カメラを開けませんでした", "session", sessionID, "backend", openErr.Backend, "target", openErr.Target, "error", err)
			fmt.Fprintln(a.Stderr, "1台以上のカメラを開けませんでした")
			return ExitOpenFailure
		default:
			log.Error("キャプチャを中止しました", "session", sessionID, "pairs", result.Pairs, "error", err)
			return ExitAborted
		}
	}

	if result.State == capture.StateCancelled {
		fmt.Fprintln(a.Stdout, "中断しました")
	}
	log.Info("キャプチャを終了しました",
		"session", sessionID,
		"state", result.State,
		"pairs", result.Pairs,
		"attempts", result.Attempts,
		"failures", result.Failures,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return ExitOK
}

// listDevices は検出したV4L2デバイスを表示する
func (a App) listDevices(ctx context.Context) int {
	devices, err := a.Discovery.ScanDevices(ctx)
	if err != nil {
		log.Error("デバイスの検出に失敗しました", "error", err)
		return ExitOpenFailure
	}

	if len(devices) == 0 {
		fmt.Fprintln(a.Stdout, "V4L2デバイスが見つかりません")
		return ExitOK
	}

	for _, device := range devices {
		info, err := a.Discovery.GetDeviceInfo(ctx, device)
		if err != nil {
			fmt.Fprintf(a.Stdout, "%s\t(情報を取得できません: %v)\n", device, err)
			continue
		}
		fmt.Fprintf(a.Stdout, "%s\t%s\t%s\n", info.Device, info.Name, info.Driver)
	}
	return ExitOK
}

// printObserver は保存したペアを標準出力に表示する
type printObserver struct {
	capture.NopObserver
	w io.Writer
}

func (p printObserver) PairCaptured(pair storage.Pair) {
	fmt.Fprintf(p.w, "ペア %d を保存しました: %s %s\n", pair.Index, pair.LeftPath, pair.RightPath)
}
