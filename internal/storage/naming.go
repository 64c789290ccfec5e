// Package storage はキャプチャしたペアの保存レイアウトを管理する
//
// ペア番号 i（4桁ゼロ埋め）と撮影時刻 t（エポックからのミリ秒）から
// left_{i:04d}_{t}.png と right_{i:04d}_{t}.png を出力ディレクトリに書き出す。
// ペアを結びつけるマニフェストは持たず、ファイル名の i と t だけで対応をとる。
package storage

import (
	"fmt"
	"regexp"
	"strconv"
)

// Side はペアのどちら側かを表す
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Pair は保存済みの1ペアを表す
type Pair struct {
	Index       int    `json:"index"`
	TimestampMs int64  `json:"timestamp_ms"`
	LeftPath    string `json:"left_path"`
	RightPath   string `json:"right_path"`
}

// FileName は片側のファイル名を返す
func FileName(side Side, index int, timestampMs int64) string {
	return fmt.Sprintf("%s_%04d_%d.png", side, index, timestampMs)
}

// PairNames は左右のファイル名を返す
func PairNames(index int, timestampMs int64) (left, right string) {
	return FileName(SideLeft, index, timestampMs), FileName(SideRight, index, timestampMs)
}

var fileNamePattern = regexp.MustCompile(`^(left|right)_(\d{4,})_(\d+)\.png$`)

// ParseFileName はファイル名からペア情報を取り出す
func ParseFileName(name string) (side Side, index int, timestampMs int64, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, 0, false
	}

	index, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, 0, false
	}
	timestampMs, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}

	return Side(m[1]), index, timestampMs, true
}
