package cursor

import (
	"context"
	"sync"
)

// Locker はユーザー単位の排他ロックを提供する。
// 同一ユーザーのカーソルの読み込みから書き戻しまでを直列化するために使う。
type Locker interface {
	// Lock はkeyのロックを取得し、解放関数を返す。ctxが終了した場合はctx.Err()を返す。
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex はプロセス内でキーごとのロックを提供する。
// 単一インスタンス構成やテストで使う。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex は新しいKeyedMutexを生成する。
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock はkeyのロックを取得する。
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

var _ Locker = (*KeyedMutex)(nil)
