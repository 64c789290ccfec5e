package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Creator はバックエンドごとの Source 作成関数の型
type Creator func(desc Descriptor) (Source, error)

// SourceFactory は記述子から Source を作成して開くファクトリー
type SourceFactory interface {
	Create(desc Descriptor) (Source, error)
	Open(ctx context.Context, desc Descriptor) (Source, error)
	SupportedBackends() []Backend
}

// DefaultFactory は標準実装
type DefaultFactory struct {
	creators map[Backend]Creator
	mu       sync.RWMutex
}

// NewFactory は新しいファクトリーを作成する
// バックエンドは cvcam.Register などで登録する
func NewFactory() *DefaultFactory {
	return &DefaultFactory{
		creators: make(map[Backend]Creator),
	}
}

// Register はバックエンドの作成関数を登録する
func (f *DefaultFactory) Register(backend Backend, creator Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[backend] = creator
}

// Create は Source を作成する（まだ開かない）
func (f *DefaultFactory) Create(desc Descriptor) (Source, error) {
	f.mu.RLock()
	creator, exists := f.creators[desc.Backend]
	f.mu.RUnlock()

	if !exists {
		return nil, NewOpenError(desc, fmt.Errorf("%w: %s", ErrUnsupportedBackend, desc.Backend))
	}

	src, err := creator(desc.WithDefaults())
	if err != nil {
		return nil, asOpenError(desc, err)
	}
	return src, nil
}

// Open は Source を作成して開く
// 開けなかった場合は途中まで確保したリソースを解放して OpenError を返す
func (f *DefaultFactory) Open(ctx context.Context, desc Descriptor) (Source, error) {
	src, err := f.Create(desc)
	if err != nil {
		return nil, err
	}

	if err := src.Open(ctx); err != nil {
		_ = src.Release()
		return nil, asOpenError(desc, err)
	}

	if !src.IsOpen() {
		_ = src.Release()
		return nil, NewOpenError(desc, errors.New("ストリームが開かれていません"))
	}

	return src, nil
}

// SupportedBackends は登録済みのバックエンドを返す
func (f *DefaultFactory) SupportedBackends() []Backend {
	f.mu.RLock()
	defer f.mu.RUnlock()

	backends := make([]Backend, 0, len(f.creators))
	for backend := range f.creators {
		backends = append(backends, backend)
	}
	sort.Slice(backends, func(i, j int) bool {
		return backends[i] < backends[j]
	})
	return backends
}

// asOpenError はエラーを OpenError にそろえる
func asOpenError(desc Descriptor, err error) error {
	var openErr *OpenError
	if errors.As(err, &openErr) {
		return err
	}
	return NewOpenError(desc, err)
}
