// Package log はstereocap全体で使う構造化ロガーを提供する
// log/slog をラップし、レベルと出力形式を起動時に一度だけ設定する
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// Options はロガーの設定
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // text または json
	Output io.Writer // nil の場合は標準エラー出力
}

// ParseLevel は文字列からslogのレベルを解決する
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init はグローバルロガーを初期化する
func Init(opts Options) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	if strings.EqualFold(opts.Format, "json") {
		logger = slog.New(slog.NewJSONHandler(out, handlerOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(out, handlerOpts))
	}

	slog.SetDefault(logger)
	return logger
}

// L はグローバルロガーを返す
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()

	if l == nil {
		return Init(Options{Level: "info"})
	}
	return l
}

// Debug はdebugレベルで出力する
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info はinfoレベルで出力する
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn はwarnレベルで出力する
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error はerrorレベルで出力する
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With は属性を付けたロガーを返す
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
