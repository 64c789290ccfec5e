package capture

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy は読み出し失敗時のリトライ方針
// MaxAttempts と MaxElapsed の 0 は無制限を意味する
type RetryPolicy struct {
	Backoff     time.Duration `yaml:"backoff"`      // 失敗後の待機時間
	MaxAttempts int           `yaml:"max_attempts"` // 同じペア番号での失敗回数の上限
	MaxElapsed  time.Duration `yaml:"max_elapsed"`  // 同じペア番号での最初の失敗からの経過時間の上限
}

// DefaultRetryPolicy は無制限リトライのポリシーを返す
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Backoff: DefaultBackoff,
	}
}

// Unbounded は上限がないかを返す
func (p RetryPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0 && p.MaxElapsed <= 0
}

// check は失敗回数と経過時間が上限を超えたかを判定する
func (p RetryPolicy) check(failures int, elapsed time.Duration) error {
	if p.MaxAttempts > 0 && failures >= p.MaxAttempts {
		return fmt.Errorf("%w: %d回失敗", ErrRetryExhausted, failures)
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return fmt.Errorf("%w: %s経過", ErrRetryExhausted, elapsed)
	}
	return nil
}

// wait はバックオフ分だけ待機する。待機中のキャンセルは ctx.Err() を返す
func (p RetryPolicy) wait(ctx context.Context) error {
	if p.Backoff <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
