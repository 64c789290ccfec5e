package camera

import (
	"sync"
)

// BaseSource は Source 実装の共通部分を提供する
type BaseSource struct {
	desc  Descriptor
	state State
	mu    sync.RWMutex
}

// NewBaseSource は記述子から BaseSource を作成する
func NewBaseSource(desc Descriptor) *BaseSource {
	return &BaseSource{
		desc:  desc.WithDefaults(),
		state: StateClosed,
	}
}

// Descriptor は接続記述子を返す
func (b *BaseSource) Descriptor() Descriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.desc
}

// State は現在の状態を返す
func (b *BaseSource) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// IsOpen は読み出し可能な状態かを返す
func (b *BaseSource) IsOpen() bool {
	return b.State() == StateOpen
}

// SetState は状態を更新する
func (b *BaseSource) SetState(state State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
}

// BeginRelease は解放処理を始めてよいかを判定し、状態を StateClosed にする
// 既に StateClosed の場合は false を返す
func (b *BaseSource) BeginRelease() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return false
	}
	b.state = StateClosed
	return true
}
