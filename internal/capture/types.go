package capture

import (
	"errors"
	"time"
)

// State はペアキャプチャループの状態
type State string

// State の定数定義
const (
	StateIdle      State = "idle"      // 未開始
	StateRunning   State = "running"   // キャプチャ中
	StateCompleted State = "completed" // 目標ペア数に到達
	StateCancelled State = "cancelled" // 外部から中断された
	StateFailed    State = "failed"    // 保存エラーなどで中止
)

// Terminal は終了状態かを返す
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// 既定値
const (
	DefaultCount   = 100
	DefaultBackoff = 10 * time.Millisecond
)

var (
	// ErrSourceNotOpen はループ開始時にソースが開いていないことを示す
	ErrSourceNotOpen = errors.New("カメラソースが開いていません")

	// ErrRetryExhausted はリトライポリシーの上限に達したことを示す
	ErrRetryExhausted = errors.New("読み出しのリトライ上限に達しました")

	// ErrAlreadyStarted はループを二度実行しようとしたことを示す
	ErrAlreadyStarted = errors.New("ループは既に実行されています")
)

// Config はペアキャプチャの設定
type Config struct {
	Count int         `yaml:"count"` // 目標ペア数
	Retry RetryPolicy `yaml:"retry"` // 読み出し失敗時のリトライ方針
}

// DefaultConfig はデフォルトのキャプチャ設定を返す
func DefaultConfig() Config {
	return Config{
		Count: DefaultCount,
		Retry: DefaultRetryPolicy(),
	}
}

// Stats はループの実行結果
type Stats struct {
	State    State `json:"state"`
	Pairs    int   `json:"pairs"`    // 保存したペア数
	Attempts int   `json:"attempts"` // 同時読み出しの試行回数
	Failures int   `json:"failures"` // 失敗した同時読み出しの回数
}

// Result はセッションの実行結果
type Result struct {
	Stats
	SessionID  string `json:"session_id"`
	ReleaseErr error  `json:"-"` // 解放時のエラー（報告のみ）
}
