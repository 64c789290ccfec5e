package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"stereocap/internal/storage"
)

func TestTracker_Status(t *testing.T) {
	tracker := NewTracker("session-1", 5)

	status := tracker.Status()
	if status.SessionID != "session-1" || status.Target != 5 || status.State != StateIdle {
		t.Errorf("初期状態 = %+v", status)
	}

	tracker.StateChanged(StateIdle, StateRunning)
	tracker.ReadFailed(ReadFailure{Index: 0, Attempt: 1})
	tracker.PairCaptured(storage.Pair{Index: 0, TimestampMs: 100})
	tracker.PairCaptured(storage.Pair{Index: 1, TimestampMs: 200})
	tracker.ReleaseFailed(storage.SideLeft, errors.New("失敗"))

	status = tracker.Status()
	if status.State != StateRunning {
		t.Errorf("State = %s, want %s", status.State, StateRunning)
	}
	if status.Pairs != 2 || status.Failures != 1 || status.Releases != 1 {
		t.Errorf("Status = %+v", status)
	}
	if status.LastPair == nil || status.LastPair.Index != 1 {
		t.Fatalf("LastPair = %+v", status.LastPair)
	}

	// 返したコピーを変更しても内部状態は変わらない
	status.LastPair.Index = 99
	if tracker.Status().LastPair.Index != 1 {
		t.Error("Status() が内部状態を共有しています")
	}
}

func TestTracker_AsObserver(t *testing.T) {
	left, right := openMocks(t)
	tracker := NewTracker("session-2", 2)

	loop := NewLoop(storage.NewStore(t.TempDir(), nil), fastConfig(2),
		WithObserver(MultiObserver{tracker, LogObserver{SessionID: "session-2"}}))
	if _, err := loop.Run(context.Background(), left, right); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	status := tracker.Status()
	if status.State != StateCompleted || status.Pairs != 2 {
		t.Errorf("Status = %+v", status)
	}
}

func TestRetryPolicy_Check(t *testing.T) {
	tests := []struct {
		name     string
		policy   RetryPolicy
		failures int
		elapsed  time.Duration
		wantErr  bool
	}{
		{"無制限", DefaultRetryPolicy(), 1000, time.Hour, false},
		{"回数上限未満", RetryPolicy{MaxAttempts: 3}, 2, 0, false},
		{"回数上限", RetryPolicy{MaxAttempts: 3}, 3, 0, true},
		{"時間上限未満", RetryPolicy{MaxElapsed: time.Second}, 10, 500 * time.Millisecond, false},
		{"時間上限", RetryPolicy{MaxElapsed: time.Second}, 10, time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.check(tt.failures, tt.elapsed)
			if (err != nil) != tt.wantErr {
				t.Errorf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrRetryExhausted) {
				t.Errorf("check() error = %v, want ErrRetryExhausted", err)
			}
		})
	}
}

func TestRetryPolicy_Unbounded(t *testing.T) {
	if !DefaultRetryPolicy().Unbounded() {
		t.Error("デフォルトは無制限であるべきです")
	}
	if (RetryPolicy{MaxAttempts: 1}).Unbounded() {
		t.Error("MaxAttempts 指定時は無制限ではありません")
	}
}

func TestRetryPolicy_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{Backoff: time.Hour}
	if err := p.wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("wait() error = %v, want context.Canceled", err)
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateCompleted, StateCancelled, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s は終了状態です", s)
		}
	}
	for _, s := range []State{StateIdle, StateRunning} {
		if s.Terminal() {
			t.Errorf("%s は終了状態ではありません", s)
		}
	}
}
