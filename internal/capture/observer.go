package capture

import (
	"stereocap/internal/log"
	"stereocap/internal/storage"
)

// ReadFailure は失敗した同時読み出しの情報
type ReadFailure struct {
	Index    int   // 再試行するペア番号
	Attempt  int   // このペア番号での失敗回数（1始まり）
	LeftErr  error // 左側のエラー（成功時は nil）
	RightErr error // 右側のエラー（成功時は nil）
}

// Observer はキャプチャの進行を受け取る
// ループと同じゴルーチンから呼ばれるため、重い処理をしてはいけない
type Observer interface {
	StateChanged(from, to State)
	PairCaptured(pair storage.Pair)
	ReadFailed(failure ReadFailure)
	ReleaseFailed(side storage.Side, err error)
}

// NopObserver は何もしない Observer
type NopObserver struct{}

func (NopObserver) StateChanged(State, State) {}
func (NopObserver) PairCaptured(storage.Pair) {}
func (NopObserver) ReadFailed(ReadFailure) {}
func (NopObserver) ReleaseFailed(storage.Side, error) {}

// MultiObserver は複数の Observer に通知する
type MultiObserver []Observer

func (m MultiObserver) StateChanged(from, to State) {
	for _, o := range m {
		o.StateChanged(from, to)
	}
}

func (m MultiObserver) PairCaptured(pair storage.Pair) {
	for _, o := range m {
		o.PairCaptured(pair)
	}
}

func (m MultiObserver) ReadFailed(failure ReadFailure) {
	for _, o := range m {
		o.ReadFailed(failure)
	}
}

func (m MultiObserver) ReleaseFailed(side storage.Side, err error) {
	for _, o := range m {
		o.ReleaseFailed(side, err)
	}
}

// LogObserver は進行をログに出力する
type LogObserver struct {
	SessionID string
}

func (o LogObserver) StateChanged(from, to State) {
	log.Info("キャプチャ状態が変化しました", "session", o.SessionID, "from", from, "to", to)
}

func (o LogObserver) PairCaptured(pair storage.Pair) {
	log.Info("ペアを保存しました",
		"session", o.SessionID,
		"index", pair.Index,
		"left", pair.LeftPath,
		"right", pair.RightPath)
}

// ReadFailed は一時的な失敗なのでdebugレベルに留める
func (o LogObserver) ReadFailed(failure ReadFailure) {
	log.Debug("フレームの読み出しに失敗、再試行します",
		"session", o.SessionID,
		"index", failure.Index,
		"attempt", failure.Attempt,
		"left_err", failure.LeftErr,
		"right_err", failure.RightErr)
}

func (o LogObserver) ReleaseFailed(side storage.Side, err error) {
	log.Warn("カメラの解放に失敗しました", "session", o.SessionID, "side", side, "error", err)
}
