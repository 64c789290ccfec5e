package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout はソースがフレームを返さなかったことを示す一時的なエラー
	ErrReadTimeout = errors.New("フレームを取得できませんでした")

	// ErrNotOpen は開いていないソースからの読み出しを示す
	ErrNotOpen = errors.New("ソースが開いていません")

	// ErrUnsupportedBackend は登録されていないバックエンドを示す
	ErrUnsupportedBackend = errors.New("サポートされていないバックエンド")
)

// OpenError はソースを開けなかったことを表す
// セッション開始時に致命的なエラーとして扱われる
type OpenError struct {
	Backend Backend
	Target  string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("カメラのオープンに失敗 (%s %s): %v", e.Backend, e.Target, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// NewOpenError は記述子からOpenErrorを作成する
func NewOpenError(desc Descriptor, err error) *OpenError {
	return &OpenError{
		Backend: desc.Backend,
		Target:  desc.Target(),
		Err:     err,
	}
}
