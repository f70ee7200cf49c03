package database

import (
	"context"
	"sync"
)

// Lazy はプロセス全体で共有するリソースを初回アクセス時に1度だけ初期化する。
// 初期化に失敗した場合は結果を保持せず、次回のGetで再試行する。
type Lazy[T any] struct {
	mu    sync.Mutex
	init  func(ctx context.Context) (T, error)
	value T
	ready bool
}

// NewLazy はinitで初期化されるLazyを生成する。
func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get は初期化済みの値を返す。未初期化であればinitを呼び出す。
// 同時に呼ばれた場合もinitが並行して実行されることはない。
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return l.value, nil
	}

	v, err := l.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = v
	l.ready = true
	return v, nil
}

// Loaded は初期化済みであれば値とtrueを返す。初期化は行わない。
func (l *Lazy[T]) Loaded() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ready
}
