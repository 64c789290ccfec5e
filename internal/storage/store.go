package storage

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"stereocap/internal/camera"
)

// Encoder はフレームを画像ファイルとして書き出す
type Encoder interface {
	Encode(path string, frame camera.Frame) error
}

// PNGEncoder は image/png でフレームを書き出す
type PNGEncoder struct{}

// Encode はフレームをPNGとして path に書き出す
func (PNGEncoder) Encode(path string, frame camera.Frame) (err error) {
	img, err := frame.Image()
	if err != nil {
		return fmt.Errorf("フレームの変換に失敗: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ファイルのクローズに失敗: %w", cerr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("PNGエンコードに失敗: %w", err)
	}
	return nil
}

// PersistenceError はペアの書き込みに失敗したことを表す
type PersistenceError struct {
	Index int
	Side  Side
	Path  string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ペア %d の%s画像の保存に失敗 (%s): %v", e.Index, e.Side, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store は出力ディレクトリへのペアの保存を担う
type Store struct {
	dir     string
	encoder Encoder
}

// NewStore は新しい Store を作成する。encoder が nil の場合は PNGEncoder を使う
func NewStore(dir string, encoder Encoder) *Store {
	if encoder == nil {
		encoder = PNGEncoder{}
	}
	return &Store{
		dir:     dir,
		encoder: encoder,
	}
}

// Dir は出力ディレクトリを返す
func (s *Store) Dir() string {
	return s.dir
}

// WritePair は左、右の順にフレームを書き出す
// 右側の書き込みに失敗した場合は左側のファイルを削除し、片側だけのペアを残さない
func (s *Store) WritePair(index int, timestampMs int64, left, right camera.Frame) (Pair, error) {
	leftName, rightName := PairNames(index, timestampMs)
	pair := Pair{
		Index:       index,
		TimestampMs: timestampMs,
		LeftPath:    filepath.Join(s.dir, leftName),
		RightPath:   filepath.Join(s.dir, rightName),
	}

	if err := s.writeFile(pair.LeftPath, left); err != nil {
		return Pair{}, &PersistenceError{Index: index, Side: SideLeft, Path: pair.LeftPath, Err: err}
	}

	if err := s.writeFile(pair.RightPath, right); err != nil {
		perr := &PersistenceError{Index: index, Side: SideRight, Path: pair.RightPath, Err: err}
		if rmErr := os.Remove(pair.LeftPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			perr.Err = errors.Join(err, fmt.Errorf("左画像の削除に失敗: %w", rmErr))
		}
		return Pair{}, perr
	}

	return pair, nil
}

// writeFile は一時ファイルに書き出してからリネームする
// 一時ファイル名も .png で終わるのはエンコーダーが拡張子で形式を決めるため
func (s *Store) writeFile(path string, frame camera.Frame) error {
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))

	if err := s.encoder.Encode(tmp, frame); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ファイルのリネームに失敗: %w", err)
	}
	return nil
}

// List は出力ディレクトリ内の完全なペアを番号順に返す
// 片側しかないファイルは無視する
func (s *Store) List() ([]Pair, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Pair{}, nil
		}
		return nil, fmt.Errorf("ディレクトリの読み取りに失敗: %w", err)
	}

	type key struct {
		index int
		ts    int64
	}
	lefts := make(map[key]string)
	rights := make(map[key]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		side, index, ts, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		k := key{index: index, ts: ts}
		path := filepath.Join(s.dir, entry.Name())
		if side == SideLeft {
			lefts[k] = path
		} else {
			rights[k] = path
		}
	}

	pairs := make([]Pair, 0, len(lefts))
	for k, leftPath := range lefts {
		rightPath, exists := rights[k]
		if !exists {
			continue
		}
		pairs = append(pairs, Pair{
			Index:       k.index,
			TimestampMs: k.ts,
			LeftPath:    leftPath,
			RightPath:   rightPath,
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Index != pairs[j].Index {
			return pairs[i].Index < pairs[j].Index
		}
		return pairs[i].TimestampMs < pairs[j].TimestampMs
	})

	return pairs, nil
}
