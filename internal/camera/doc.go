// Package camera 単一の映像ストリームを抽象化するカメラソースを提供する
//
// # 責務
// - バックエンド（V4L2 / GStreamer）の選択と接続記述子の表現
// - open / read / release のライフサイクル管理
// - GStreamerパイプライン文字列の生成
// - V4L2デバイスの検出と接続先の解決
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - バックエンドに依存せずにフレームを1枚ずつ読み出したい
// - ペアキャプチャループにカメラを渡したい
// - テストでカメラの代わりにモックソースを使いたい
//
// # 仕様
// - Source: open/read/release/is_open の能力セット
// - Factory: バックエンドごとの作成関数を登録して Source を生成する
// - Read は1回だけブロッキングで読み出し、内部でリトライしない
// - Release は冪等で、2回目以降は何もしない
// - 実際のキャプチャ実装は cvcam パッケージ（gocv）にある
//
// # 前提要件
//   - OpenCV（GStreamerサポート付き）: cvcam パッケージが使用する
//   - v4l-utils: デバイス名の取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
