// Package server は、キャプチャ中の状態を確認するためのHTTPサーバーを提供します。
//
// 責務:
//   - セッションの進行状況の配信
//   - 保存済みペアの一覧と画像の配信
//   - グレースフルシャットダウン
//
// 仕様:
//   - ルーティングには gin を使用
//   - 読み取り専用で、キャプチャの制御は行わない
//   - キャプチャと同じプロセス内で別ゴルーチンとして動作する
package server
