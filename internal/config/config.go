package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stereocap/internal/camera"
	"stereocap/internal/capture"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Camera  CameraConfig   `yaml:"camera"`
	Out     string         `yaml:"out"` // 出力ディレクトリ
	Capture capture.Config `yaml:"capture"`
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
}

// CameraConfig は左右カメラの設定
type CameraConfig struct {
	Mode string `yaml:"mode"` // gst または v4l2

	// v4l2 モードで使うデバイス（番号またはパス）
	Left  string `yaml:"left"`
	Right string `yaml:"right"`

	// gst モードで使うセンサーID
	LeftID  *int `yaml:"left_id"`
	RightID *int `yaml:"right_id"`

	// 0 の場合、v4l2 はドライバーの既定値、gst は 1280x720@30
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	FrameRate int `yaml:"framerate"`
}

// ServerConfig は状態確認用HTTPサーバーの設定
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"` // リッスンするホスト
	Port    int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text または json
}

// 既定値
const (
	DefaultOut  = "data/pairs"
	DefaultHost = "127.0.0.1"
	DefaultPort = 8090
)

// ErrInvalid は設定の検証エラーを示す
var ErrInvalid = errors.New("無効な設定")

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Mode: string(camera.BackendGStreamer),
		},
		Out:     DefaultOut,
		Capture: capture.DefaultConfig(),
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			ReadTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load はデフォルト値に環境変数を反映した設定を返す
// 検証は CLI フラグを反映した後に呼び出し側で行う
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	return cfg, nil
}

// LoadFile はYAMLファイルをデフォルト値に重ねて読み込み、環境変数を反映する
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	return cfg, nil
}

// applyEnv は STEREOCAP_* 環境変数を反映する
func (c *Config) applyEnv() error {
	c.Camera.Mode = getEnvOrDefault("STEREOCAP_MODE", c.Camera.Mode)
	c.Camera.Left = getEnvOrDefault("STEREOCAP_LEFT", c.Camera.Left)
	c.Camera.Right = getEnvOrDefault("STEREOCAP_RIGHT", c.Camera.Right)
	c.Out = getEnvOrDefault("STEREOCAP_OUT", c.Out)
	c.Capture.Count = getEnvAsIntOrDefault("STEREOCAP_COUNT", c.Capture.Count)
	c.Camera.Width = getEnvAsIntOrDefault("STEREOCAP_WIDTH", c.Camera.Width)
	c.Camera.Height = getEnvAsIntOrDefault("STEREOCAP_HEIGHT", c.Camera.Height)

	if value := os.Getenv("STEREOCAP_LEFT_ID"); value != "" {
		id := getEnvAsIntOrDefault("STEREOCAP_LEFT_ID", -1)
		c.Camera.LeftID = &id
	}
	if value := os.Getenv("STEREOCAP_RIGHT_ID"); value != "" {
		id := getEnvAsIntOrDefault("STEREOCAP_RIGHT_ID", -1)
		c.Camera.RightID = &id
	}

	if value := os.Getenv("STEREOCAP_BACKOFF"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("STEREOCAP_BACKOFF: %w", err)
		}
		c.Capture.Retry.Backoff = d
	}

	if value := os.Getenv("STEREOCAP_SERVER"); value != "" {
		c.Server.Enabled = value == "1" || strings.EqualFold(value, "true")
	}
	c.Server.Host = getEnvOrDefault("STEREOCAP_SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("STEREOCAP_SERVER_PORT", c.Server.Port)

	c.Log.Level = getEnvOrDefault("STEREOCAP_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("STEREOCAP_LOG_FORMAT", c.Log.Format)
	return nil
}

// Validate は設定の妥当性を検証する
// 返すエラーは ErrInvalid をラップする
func (c *Config) Validate() error {
	backend, err := camera.ParseBackend(c.Camera.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	switch backend {
	case camera.BackendGStreamer:
		if c.Camera.LeftID == nil || c.Camera.RightID == nil {
			return fmt.Errorf("%w: gst モードでは左右のセンサーIDが必要です", ErrInvalid)
		}
		if *c.Camera.LeftID < 0 || *c.Camera.RightID < 0 {
			return fmt.Errorf("%w: センサーIDは0以上である必要があります", ErrInvalid)
		}
	case camera.BackendV4L2:
		if strings.TrimSpace(c.Camera.Left) == "" || strings.TrimSpace(c.Camera.Right) == "" {
			return fmt.Errorf("%w: v4l2 モードでは左右のデバイスが必要です", ErrInvalid)
		}
	}

	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FrameRate < 0 {
		return fmt.Errorf("%w: 画像サイズとフレームレートは0以上である必要があります", ErrInvalid)
	}
	if c.Capture.Count < 1 {
		return fmt.Errorf("%w: ペア数は1以上である必要があります: %d", ErrInvalid, c.Capture.Count)
	}
	if c.Capture.Retry.Backoff < 0 || c.Capture.Retry.MaxAttempts < 0 || c.Capture.Retry.MaxElapsed < 0 {
		return fmt.Errorf("%w: リトライ設定は0以上である必要があります", ErrInvalid)
	}
	if c.Out == "" {
		return fmt.Errorf("%w: 出力ディレクトリが指定されていません", ErrInvalid)
	}

	if c.Server.Enabled {
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return fmt.Errorf("%w: 無効なポート番号: %d", ErrInvalid, c.Server.Port)
		}
	}

	return nil
}

// Descriptors は左右のカメラ記述子を返す
// Validate を通過した設定に対して呼び出す
func (c *Config) Descriptors() (left, right camera.Descriptor, err error) {
	backend, err := camera.ParseBackend(c.Camera.Mode)
	if err != nil {
		return left, right, err
	}

	base := camera.Descriptor{
		Backend:   backend,
		Width:     c.Camera.Width,
		Height:    c.Camera.Height,
		FrameRate: c.Camera.FrameRate,
	}
	left, right = base, base

	switch backend {
	case camera.BackendGStreamer:
		if c.Camera.LeftID == nil || c.Camera.RightID == nil {
			return left, right, fmt.Errorf("%w: センサーIDが指定されていません", ErrInvalid)
		}
		left.SensorID = *c.Camera.LeftID
		right.SensorID = *c.Camera.RightID
	case camera.BackendV4L2:
		left.Device = strings.TrimSpace(c.Camera.Left)
		right.Device = strings.TrimSpace(c.Camera.Right)
	}

	return left.WithDefaults(), right.WithDefaults(), nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
