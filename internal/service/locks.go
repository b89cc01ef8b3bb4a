package service

import (
	"context"
	"slices"
	"sync"
)

// chatLocks hands out one lock per chat. Waiters are served in the order
// they called Acquire. Entries are dropped when nobody holds or waits for
// them.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	held    bool
	waiters []chan struct{}
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*chatLock)}
}

// Acquire blocks until the chat is free or ctx is done.
func (l *chatLocks) Acquire(ctx context.Context, chatID int64) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[chatID]
	if !ok {
		lock = &chatLock{}
		l.locks[chatID] = lock
	}
	if !lock.held {
		lock.held = true
		l.mu.Unlock()
		return l.releaser(chatID, lock), nil
	}
	turn := make(chan struct{}, 1)
	lock.waiters = append(lock.waiters, turn)
	l.mu.Unlock()

	select {
	case <-turn:
		return l.releaser(chatID, lock), nil
	case <-ctx.Done():
		l.mu.Lock()
		i := slices.Index(lock.waiters, turn)
		if i >= 0 {
			lock.waiters = slices.Delete(lock.waiters, i, i+1)
			l.mu.Unlock()
			return nil, ctx.Err()
		}
		l.mu.Unlock()
		// the lock was handed over while ctx expired
		l.unlock(chatID, lock)
		return nil, ctx.Err()
	}
}

func (l *chatLocks) releaser(chatID int64, lock *chatLock) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(chatID, lock) })
	}
}

func (l *chatLocks) unlock(chatID int64, lock *chatLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(lock.waiters) > 0 {
		next := lock.waiters[0]
		lock.waiters = lock.waiters[1:]
		next <- struct{}{}
		return
	}
	lock.held = false
	delete(l.locks, chatID)
}

func (l *chatLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
