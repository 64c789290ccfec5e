package capture

import (
	"sync"
	"time"

	"stereocap/internal/storage"
)

// StatusInfo はセッションの進行状況
type StatusInfo struct {
	SessionID string        `json:"session_id"`
	State     State         `json:"state"`
	Target    int           `json:"target"`
	Pairs     int           `json:"pairs"`
	Failures  int           `json:"failures"`
	Releases  int           `json:"release_failures"`
	LastPair  *storage.Pair `json:"last_pair,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Tracker は Observer として進行状況を集計し、他のゴルーチンから参照できるようにする
type Tracker struct {
	status StatusInfo
	now    func() time.Time
	mu     sync.RWMutex
}

// NewTracker は新しい Tracker を作成する
func NewTracker(sessionID string, target int) *Tracker {
	now := time.Now()
	return &Tracker{
		status: StatusInfo{
			SessionID: sessionID,
			State:     StateIdle,
			Target:    target,
			StartedAt: now,
			UpdatedAt: now,
		},
		now: time.Now,
	}
}

// Status は現在の進行状況のコピーを返す
func (t *Tracker) Status() StatusInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := t.status
	if status.LastPair != nil {
		pair := *status.LastPair
		status.LastPair = &pair
	}
	return status
}

func (t *Tracker) StateChanged(_, to State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = to
	t.status.UpdatedAt = t.now()
}

func (t *Tracker) PairCaptured(pair storage.Pair) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Pairs++
	t.status.LastPair = &pair
	t.status.UpdatedAt = t.now()
}

func (t *Tracker) ReadFailed(ReadFailure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Failures++
	t.status.UpdatedAt = t.now()
}

func (t *Tracker) ReleaseFailed(storage.Side, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Releases++
	t.status.UpdatedAt = t.now()
}
