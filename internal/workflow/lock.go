package workflow

import "sync"

// runLocks serializes work on the same run ID. Entries are dropped once no
// caller holds or waits on them.
type runLocks struct {
	mu    sync.Mutex
	locks map[string]*runLock
}

type runLock struct {
	sync.Mutex
	refs int
}

func newRunLocks() *runLocks {
	return &runLocks{locks: make(map[string]*runLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *runLocks) lock(id string) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &runLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *runLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
