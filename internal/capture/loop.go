package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stereocap/internal/camera"
	"stereocap/internal/storage"
)

// PairWriter はペアを永続化する
type PairWriter interface {
	WritePair(index int, timestampMs int64, left, right camera.Frame) (storage.Pair, error)
}

// Option はループとセッションの共通オプション
type Option func(*options)

type options struct {
	observer  Observer
	now       func() time.Time
	sessionID string
}

// WithObserver は進行を通知する Observer を設定する
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithClock は撮影時刻の取得に使う時計を設定する
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSessionID はセッションIDを指定する。省略時は UUID を生成する
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

func buildOptions(opts []Option) options {
	o := options{
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	return o
}

// Loop は2つのソースを歩調を合わせて読み出し、ペアを保存する
//
// 1ステップで左、右の順に読み出す。両方成功したら撮影時刻を決めて保存し、
// ペア番号を1つ進める。どちらかが失敗したら番号を進めずにバックオフしてから
// 同じ番号で再試行する。キャンセルはステップの間でだけ確認する
type Loop struct {
	writer PairWriter
	config Config
	opts   options

	state State
	mu    sync.RWMutex
}

// NewLoop は新しい Loop を作成する
func NewLoop(writer PairWriter, config Config, opts ...Option) *Loop {
	return &Loop{
		writer: writer,
		config: config,
		opts:   buildOptions(opts),
		state:  StateIdle,
	}
}

// State は現在の状態を返す
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loop) setState(to State) {
	l.mu.Lock()
	from := l.state
	l.state = to
	l.mu.Unlock()

	if from != to {
		l.opts.observer.StateChanged(from, to)
	}
}

// Run は目標ペア数に達するか ctx がキャンセルされるまでキャプチャする
// キャンセルはエラーではなく、Stats.State が StateCancelled になる
// ソースの解放は呼び出し側（Session）の責任
func (l *Loop) Run(ctx context.Context, left, right camera.Source) (Stats, error) {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return Stats{State: l.State()}, ErrAlreadyStarted
	}
	l.mu.Unlock()

	if left == nil || right == nil || !left.IsOpen() || !right.IsOpen() {
		return Stats{State: StateIdle}, ErrSourceNotOpen
	}

	l.setState(StateRunning)

	stats := Stats{State: StateRunning}
	index := 0
	failures := 0
	var firstFailure time.Time

	finish := func(state State, err error) (Stats, error) {
		l.setState(state)
		stats.State = state
		stats.Pairs = index
		return stats, err
	}

	for index < l.config.Count {
		if ctx.Err() != nil {
			return finish(StateCancelled, nil)
		}

		stats.Attempts++
		leftFrame, leftErr := left.Read()
		rightFrame, rightErr := right.Read()

		if leftErr != nil || rightErr != nil {
			closeFrame(leftFrame)
			closeFrame(rightFrame)

			stats.Failures++
			failures++
			if failures == 1 {
				firstFailure = l.opts.now()
			}
			l.opts.observer.ReadFailed(ReadFailure{
				Index:    index,
				Attempt:  failures,
				LeftErr:  leftErr,
				RightErr: rightErr,
			})

			if err := l.config.Retry.check(failures, l.opts.now().Sub(firstFailure)); err != nil {
				return finish(StateFailed, fmt.Errorf("ペア %d: %w", index, err))
			}
			if err := l.config.Retry.wait(ctx); err != nil {
				return finish(StateCancelled, nil)
			}
			continue
		}

		// 読み出し中に中断された場合はこのイテレーションを保存しない
		if ctx.Err() != nil {
			closeFrame(leftFrame)
			closeFrame(rightFrame)
			return finish(StateCancelled, nil)
		}

		timestampMs := l.opts.now().UnixMilli()
		pair, err := l.writer.WritePair(index, timestampMs, leftFrame, rightFrame)
		closeFrame(leftFrame)
		closeFrame(rightFrame)
		if err != nil {
			return finish(StateFailed, err)
		}

		l.opts.observer.PairCaptured(pair)
		index++
		failures = 0
	}

	return finish(StateCompleted, nil)
}

// closeFrame はフレームを解放する。nil は無視する
func closeFrame(frame camera.Frame) {
	if frame != nil {
		_ = frame.Close()
	}
}
