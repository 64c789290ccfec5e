package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"stereocap/internal/camera"
	"stereocap/internal/log"
	"stereocap/internal/storage"
)

// Session は2台のカメラを開き、ループを実行し、最後に必ず両方を解放する
type Session struct {
	id      string
	factory camera.SourceFactory
	left    camera.Descriptor
	right   camera.Descriptor
	writer  PairWriter
	config  Config
	opts    []Option
	options options

	loop *Loop
	mu   sync.Mutex
}

// NewSession は新しい Session を作成する
func NewSession(factory camera.SourceFactory, left, right camera.Descriptor, writer PairWriter, config Config, opts ...Option) *Session {
	o := buildOptions(opts)
	id := o.sessionID
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{
		id:      id,
		factory: factory,
		left:    left,
		right:   right,
		writer:  writer,
		config:  config,
		opts:    opts,
		options: o,
	}
}

// ID はセッションIDを返す
func (s *Session) ID() string {
	return s.id
}

// State はループの現在の状態を返す
func (s *Session) State() State {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()

	if loop == nil {
		return StateIdle
	}
	return loop.State()
}

// Run は左、右の順にカメラを開いてキャプチャを実行する
//
// カメラを開けなかった場合は *camera.OpenError を含むエラーを返し、ペアは保存しない。
// 開けたソースはどの終了経路でもちょうど1回解放される。
// 解放の失敗は Result.ReleaseErr に記録され、戻り値のエラーにはならない
func (s *Session) Run(ctx context.Context) (result Result, err error) {
	s.mu.Lock()
	if s.loop != nil {
		s.mu.Unlock()
		return Result{SessionID: s.id, Stats: Stats{State: s.State()}}, ErrAlreadyStarted
	}
	s.loop = NewLoop(s.writer, s.config, s.opts...)
	loop := s.loop
	s.mu.Unlock()

	result = Result{SessionID: s.id, Stats: Stats{State: StateIdle}}

	log.Info("左カメラを開きます", "session", s.id, "backend", s.left.Backend, "target", s.left.Target())
	left, err := s.factory.Open(ctx, s.left)
	if err != nil {
		return result, fmt.Errorf("左カメラ: %w", err)
	}

	log.Info("右カメラを開きます", "session", s.id, "backend", s.right.Backend, "target", s.right.Target())
	right, err := s.factory.Open(ctx, s.right)
	if err != nil {
		result.ReleaseErr = s.release(storage.SideLeft, left)
		return result, fmt.Errorf("右カメラ: %w", err)
	}

	defer func() {
		result.ReleaseErr = errors.Join(
			s.release(storage.SideLeft, left),
			s.release(storage.SideRight, right),
		)
	}()

	result.Stats, err = loop.Run(ctx, left, right)
	return result, err
}

// release はソースを解放し、失敗を Observer に通知する
func (s *Session) release(side storage.Side, source camera.Source) error {
	if err := source.Release(); err != nil {
		s.options.observer.ReleaseFailed(side, err)
		return fmt.Errorf("%sカメラの解放: %w", sideLabel(side), err)
	}
	return nil
}

func sideLabel(side storage.Side) string {
	if side == storage.SideLeft {
		return "左"
	}
	return "右"
}
