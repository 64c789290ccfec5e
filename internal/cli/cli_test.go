package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stereocap/internal/camera"
	"stereocap/internal/storage"
)

// testApp は Device 名ごとに MockSource を返す App を作成する
func testApp(sources map[string]*camera.MockSource) (App, *bytes.Buffer, *bytes.Buffer) {
	factory := camera.NewFactory()
	factory.Register(camera.BackendV4L2, func(desc camera.Descriptor) (camera.Source, error) {
		src, ok := sources[desc.Device]
		if !ok {
			return nil, errors.New("デバイスが見つかりません")
		}
		return src, nil
	})

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return App{
		Factory:   factory,
		Discovery: camera.NewMockDiscovery([]string{"/dev/video0", "/dev/video2"}),
		Stdout:    stdout,
		Stderr:    stderr,
	}, stdout, stderr
}

func mockPair() map[string]*camera.MockSource {
	return map[string]*camera.MockSource{
		"0": camera.NewMockSource(camera.Descriptor{Backend: camera.BackendV4L2, Device: "0"}),
		"1": camera.NewMockSource(camera.Descriptor{Backend: camera.BackendV4L2, Device: "1"}),
	}
}

func countPairs(t *testing.T, dir string) int {
	t.Helper()
	pairs, err := storage.NewStore(dir, nil).List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return len(pairs)
}

func TestRun_Capture(t *testing.T) {
	sources := mockPair()
	app, stdout, _ := testApp(sources)
	out := filepath.Join(t.TempDir(), "pairs")

	code := app.Run(context.Background(), []string{
		"-mode", "v4l2", "-left", "0", "-right", "1", "-out", out, "-count", "3", "-backoff", "1ms",
	})
	if code != ExitOK {
		t.Fatalf("終了コード = %d, want %d", code, ExitOK)
	}

	// 出力ディレクトリは自動で作成される
	if n := countPairs(t, out); n != 3 {
		t.Errorf("ペア数 = %d, want 3", n)
	}
	if !strings.Contains(stdout.String(), "Ctrl-C") {
		t.Errorf("開始メッセージがありません: %s", stdout.String())
	}
	if got := strings.Count(stdout.String(), "を保存しました"); got != 3 {
		t.Errorf("保存メッセージ = %d, want 3", got)
	}
	for name, src := range sources {
		if src.Releases() != 1 {
			t.Errorf("%s Releases = %d, want 1", name, src.Releases())
		}
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sources map[string]*camera.MockSource)
		args  []string
		want  int
	}{
		{
			name: "gst でセンサーIDなし",
			args: []string{"-mode", "gst", "-left-id", "0"},
			want: ExitUsage,
		},
		{
			name: "v4l2 で右デバイスなし",
			args: []string{"-mode", "v4l2", "-left", "0"},
			want: ExitUsage,
		},
		{
			name: "不明なモード",
			args: []string{"-mode", "usb", "-left", "0", "-right", "1"},
			want: ExitUsage,
		},
		{
			name: "不明なフラグ",
			args: []string{"-unknown"},
			want: ExitUsage,
		},
		{
			name: "ペア数0",
			args: []string{"-mode", "v4l2", "-left", "0", "-right", "1", "-count", "0"},
			want: ExitUsage,
		},
		{
			name: "右カメラを開けない",
			setup: func(sources map[string]*camera.MockSource) {
				sources["1"].OpenErr = errors.New("デバイスが使用中です")
			},
			args: []string{"-mode", "v4l2", "-left", "0", "-right", "1"},
			want: ExitOpenFailure,
		},
		{
			name: "未登録のデバイス",
			args: []string{"-mode", "v4l2", "-left", "0", "-right", "9"},
			want: ExitOpenFailure,
		},
		{
			name: "GStreamer が未登録",
			args: []string{"-mode", "gst", "-left-id", "0", "-right-id", "1"},
			want: ExitOpenFailure,
		},
		{
			name: "リトライ上限",
			setup: func(sources map[string]*camera.MockSource) {
				sources["0"].FailAlways = true
			},
			args: []string{"-mode", "v4l2", "-left", "0", "-right", "1", "-backoff", "1ms", "-max-attempts", "2"},
			want: ExitAborted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := mockPair()
			if tt.setup != nil {
				tt.setup(sources)
			}
			app, _, _ := testApp(sources)
			args := append([]string{"-out", t.TempDir()}, tt.args...)

			if code := app.Run(context.Background(), args); code != tt.want {
				t.Errorf("終了コード = %d, want %d", code, tt.want)
			}
			for name, src := range sources {
				if src.Opens() > 0 && src.Releases() != 1 {
					t.Errorf("%s Releases = %d, want 1", name, src.Releases())
				}
			}
		})
	}
}

func TestRun_Interrupted(t *testing.T) {
	sources := mockPair()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sources["1"].OnRead = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	app, stdout, _ := testApp(sources)
	out := t.TempDir()
	code := app.Run(ctx, []string{"-mode", "v4l2", "-left", "0", "-right", "1", "-out", out, "-count", "10"})
	if code != ExitOK {
		t.Fatalf("終了コード = %d, want %d", code, ExitOK)
	}
	if !strings.Contains(stdout.String(), "中断しました") {
		t.Errorf("中断メッセージがありません: %s", stdout.String())
	}
	if n := countPairs(t, out); n != 1 {
		t.Errorf("ペア数 = %d, want 1", n)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pairs")
	path := filepath.Join(dir, "stereocap.yaml")
	content := "camera:\n  mode: v4l2\n  left: \"0\"\n  right: \"1\"\ncapture:\n  count: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	app, _, _ := testApp(mockPair())
	// フラグはファイルの値より優先される
	code := app.Run(context.Background(), []string{"-config", path, "-out", out, "-count", "2"})
	if code != ExitOK {
		t.Fatalf("終了コード = %d, want %d", code, ExitOK)
	}
	if n := countPairs(t, out); n != 2 {
		t.Errorf("ペア数 = %d, want 2", n)
	}
}

func TestRun_MissingConfigFile(t *testing.T) {
	app, _, _ := testApp(mockPair())
	code := app.Run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	if code != ExitUsage {
		t.Errorf("終了コード = %d, want %d", code, ExitUsage)
	}
}

func TestRun_List(t *testing.T) {
	app, stdout, _ := testApp(mockPair())
	if code := app.Run(context.Background(), []string{"-list"}); code != ExitOK {
		t.Fatalf("終了コード = %d, want %d", code, ExitOK)
	}

	output := stdout.String()
	for _, want := range []string{"/dev/video0", "テストカメラ 0", "/dev/video2", "テストカメラ 2"} {
		if !strings.Contains(output, want) {
			t.Errorf("出力に %q が含まれていません: %s", want, output)
		}
	}
}
