package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Discovery はV4L2デバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はデバイスの詳細情報を表す
type DeviceInfo struct {
	Device string // デバイスパス
	Name   string // デバイス名
	Driver string // ドライバー名
}

// V4L2Target はV4L2の接続先を表す
// 整数として解釈できる記述子はデバイス番号、それ以外はパスとして扱う
type V4L2Target struct {
	Index   int
	Path    string
	IsIndex bool
}

// ResolveV4L2Target は記述子を接続先に解決する
func ResolveV4L2Target(device string) V4L2Target {
	device = strings.TrimSpace(device)
	if idx, err := strconv.Atoi(device); err == nil {
		return V4L2Target{Index: idx, IsIndex: true}
	}
	return V4L2Target{Path: device}
}

// DevicePath はデバイスファイルのパスを返す
func (t V4L2Target) DevicePath() string {
	if t.IsIndex {
		return fmt.Sprintf("/dev/video%d", t.Index)
	}
	return t.Path
}

// String はログ表示用の文字列を返す
func (t V4L2Target) String() string {
	if t.IsIndex {
		return strconv.Itoa(t.Index)
	}
	return t.Path
}

// CheckV4L2Device はパス指定のデバイスが存在するかを確認する
// 番号指定はバックエンドに解決を任せるため確認しない
func CheckV4L2Device(ctx context.Context, d Discovery, device string) error {
	target := ResolveV4L2Target(device)
	if target.IsIndex {
		return nil
	}
	if target.Path == "" {
		return fmt.Errorf("デバイスが指定されていません")
	}
	if !d.IsDeviceAvailable(ctx, target.Path) {
		return fmt.Errorf("デバイスが利用できません: %s", target.Path)
	}
	return nil
}

// LinuxDiscovery はLinux環境でのデバイス検出を実装する
type LinuxDiscovery struct{}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() *LinuxDiscovery {
	return &LinuxDiscovery{}
}

// ScanDevices は /dev/video* をデバイス番号順にスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	var devices []string

	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if d.IsDeviceAvailable(ctx, match) {
			devices = append(devices, match)
		}
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが存在し読み取り可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if _, err := os.Stat(device); err != nil {
		return false
	}

	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	return true
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	info := &DeviceInfo{
		Device: device,
		Name:   fmt.Sprintf("カメラ %d", extractDeviceNumber(device)),
		Driver: "unknown",
	}

	fields := d.queryV4L2Info(ctx, device)
	if name := fields["Card type"]; name != "" {
		info.Name = name
	}
	if driver := fields["Driver name"]; driver != "" {
		info.Driver = driver
	}

	return info, nil
}

// queryV4L2Info は v4l2-ctl --info の出力を key/value に分解する
func (d *LinuxDiscovery) queryV4L2Info(ctx context.Context, device string) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info := make(map[string]string)

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info")
	output, err := cmd.Output()
	if err != nil {
		return info
	}

	return parseV4L2Info(string(output))
}

// parseV4L2Info は v4l2-ctl --info の出力を解析する
func parseV4L2Info(output string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		if _, exists := info[key]; !exists {
			info[key] = value
		}
	}
	return info
}

var deviceNumberPattern = regexp.MustCompile(`video(\d+)`)

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := deviceNumberPattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}

	return num
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices []string
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	return &MockDiscovery{devices: devices}
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return m.devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	for _, d := range m.devices {
		if d == device {
			return true
		}
	}
	return false
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !m.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}
	return &DeviceInfo{
		Device: device,
		Name:   fmt.Sprintf("テストカメラ %d", extractDeviceNumber(device)),
		Driver: "mock",
	}, nil
}
