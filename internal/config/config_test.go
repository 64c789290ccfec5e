package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/capture"
)

func intPtr(v int) *int {
	return &v
}

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Camera.Mode != "gst" {
		t.Errorf("モードの既定値: got %s, want gst", cfg.Camera.Mode)
	}
	if cfg.Out != DefaultOut {
		t.Errorf("出力先の既定値: got %s, want %s", cfg.Out, DefaultOut)
	}
	if cfg.Capture.Count != capture.DefaultCount {
		t.Errorf("ペア数の既定値: got %d, want %d", cfg.Capture.Count, capture.DefaultCount)
	}
	if cfg.Capture.Retry.Backoff != capture.DefaultBackoff {
		t.Errorf("バックオフの既定値: got %s", cfg.Capture.Retry.Backoff)
	}
	if !cfg.Capture.Retry.Unbounded() {
		t.Error("リトライは既定で無制限であるべきです")
	}
	if cfg.Server.Enabled {
		t.Error("サーバーは既定で無効であるべきです")
	}
	if cfg.ServerAddress() != "127.0.0.1:8090" {
		t.Errorf("サーバーアドレス: got %s", cfg.ServerAddress())
	}

	// センサーIDが未指定なので既定値のままでは検証に通らない
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() error = %v, want ErrInvalid", err)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	gst := func(modify func(*Config)) *Config {
		cfg := Default()
		cfg.Camera.LeftID = intPtr(0)
		cfg.Camera.RightID = intPtr(1)
		modify(cfg)
		return cfg
	}
	v4l2 := func(modify func(*Config)) *Config {
		cfg := Default()
		cfg.Camera.Mode = "v4l2"
		cfg.Camera.Left = "0"
		cfg.Camera.Right = "/dev/video2"
		modify(cfg)
		return cfg
	}

	testCases := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{"gst 正常", gst(func(*Config) {}), false},
		{"v4l2 正常", v4l2(func(*Config) {}), false},
		{"gstreamer 表記", gst(func(c *Config) { c.Camera.Mode = "gstreamer" }), false},
		{"不明なモード", gst(func(c *Config) { c.Camera.Mode = "usb" }), true},
		{"gst 右センサーなし", gst(func(c *Config) { c.Camera.RightID = nil }), true},
		{"gst 負のセンサーID", gst(func(c *Config) { c.Camera.LeftID = intPtr(-1) }), true},
		{"v4l2 左デバイスなし", v4l2(func(c *Config) { c.Camera.Left = " " }), true},
		{"ペア数0", v4l2(func(c *Config) { c.Capture.Count = 0 }), true},
		{"負の幅", v4l2(func(c *Config) { c.Camera.Width = -1 }), true},
		{"負のバックオフ", v4l2(func(c *Config) { c.Capture.Retry.Backoff = -time.Millisecond }), true},
		{"出力先なし", v4l2(func(c *Config) { c.Out = "" }), true},
		{"サーバー無効なら無効なポートも可", v4l2(func(c *Config) { c.Server.Port = 99999 }), false},
		{"サーバー有効で無効なポート", v4l2(func(c *Config) {
			c.Server.Enabled = true
			c.Server.Port = 99999
		}), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("ErrInvalid をラップしていません: %v", err)
			}
		})
	}
}

// TestDescriptors は左右の記述子の生成をテストする
func TestDescriptors(t *testing.T) {
	t.Run("gst", func(t *testing.T) {
		cfg := Default()
		cfg.Camera.LeftID = intPtr(0)
		cfg.Camera.RightID = intPtr(1)

		left, right, err := cfg.Descriptors()
		if err != nil {
			t.Fatalf("Descriptors() error = %v", err)
		}
		if left.Backend != camera.BackendGStreamer || left.SensorID != 0 || right.SensorID != 1 {
			t.Errorf("left = %+v, right = %+v", left, right)
		}
		if left.Width != camera.DefaultWidth || left.Height != camera.DefaultHeight || left.FrameRate != camera.DefaultFrameRate {
			t.Errorf("既定の解像度が設定されていません: %+v", left)
		}
	})

	t.Run("v4l2", func(t *testing.T) {
		cfg := Default()
		cfg.Camera.Mode = "v4l2"
		cfg.Camera.Left = "0"
		cfg.Camera.Right = "/dev/video2"
		cfg.Camera.Width = 640

		left, right, err := cfg.Descriptors()
		if err != nil {
			t.Fatalf("Descriptors() error = %v", err)
		}
		if left.Device != "0" || right.Device != "/dev/video2" {
			t.Errorf("left = %+v, right = %+v", left, right)
		}
		// v4l2 は未指定の値をドライバーに任せる
		if left.Width != 640 || left.Height != 0 {
			t.Errorf("解像度: got %dx%d, want 640x0", left.Width, left.Height)
		}
	})
}

// TestLoadFile はYAMLファイルの読み込みをテストする
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereocap.yaml")
	content := `camera:
  mode: v4l2
  left: "0"
  right: "2"
  width: 640
  height: 480
out: /tmp/pairs
capture:
  count: 20
  retry:
    backoff: 50ms
    max_attempts: 5
server:
  enabled: true
  port: 9000
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Camera.Mode != "v4l2" || cfg.Camera.Left != "0" || cfg.Camera.Right != "2" {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("解像度: got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Out != "/tmp/pairs" || cfg.Capture.Count != 20 {
		t.Errorf("Out = %s, Count = %d", cfg.Out, cfg.Capture.Count)
	}
	if cfg.Capture.Retry.Backoff != 50*time.Millisecond || cfg.Capture.Retry.MaxAttempts != 5 {
		t.Errorf("Retry = %+v", cfg.Capture.Retry)
	}
	// ファイルにない項目は既定値のまま
	if cfg.Server.Host != DefaultHost || cfg.Server.Port != 9000 || !cfg.Server.Enabled {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("存在しないファイルでエラーが発生しませんでした")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("camera: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("不正なYAMLでエラーが発生しませんでした")
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("STEREOCAP_MODE", "v4l2")
	t.Setenv("STEREOCAP_LEFT", "/dev/video0")
	t.Setenv("STEREOCAP_RIGHT", "/dev/video2")
	t.Setenv("STEREOCAP_COUNT", "7")
	t.Setenv("STEREOCAP_BACKOFF", "25ms")
	t.Setenv("STEREOCAP_SERVER", "true")
	t.Setenv("STEREOCAP_SERVER_PORT", "9999")
	t.Setenv("STEREOCAP_LEFT_ID", "3")
	t.Setenv("STEREOCAP_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Camera.Mode != "v4l2" || cfg.Camera.Left != "/dev/video0" || cfg.Camera.Right != "/dev/video2" {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Capture.Count != 7 {
		t.Errorf("Count: got %d, want 7", cfg.Capture.Count)
	}
	if cfg.Capture.Retry.Backoff != 25*time.Millisecond {
		t.Errorf("Backoff: got %s, want 25ms", cfg.Capture.Retry.Backoff)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9999 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Camera.LeftID == nil || *cfg.Camera.LeftID != 3 {
		t.Errorf("LeftID = %v", cfg.Camera.LeftID)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format: got %s, want json", cfg.Log.Format)
	}
}

func TestEnvironmentVariables_InvalidBackoff(t *testing.T) {
	t.Setenv("STEREOCAP_BACKOFF", "soon")
	if _, err := Load(); err == nil {
		t.Error("不正なバックオフでエラーが発生しませんでした")
	}
}
