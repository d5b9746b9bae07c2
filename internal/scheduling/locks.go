package scheduling

import "sync"

// slotLocks — мьютекс на каждый slot_id. Разные слоты друг друга не блокируют,
// записи удаляются, когда на слот никто не ждёт.
type slotLocks struct {
	mu   sync.Mutex
	byID map[int64]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{byID: make(map[int64]*slotLock)}
}

func (l *slotLocks) lock(slotID int64) func() {
	l.mu.Lock()
	e, ok := l.byID[slotID]
	if !ok {
		e = &slotLock{}
		l.byID[slotID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.byID, slotID)
		}
		l.mu.Unlock()
	}
}

func (l *slotLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}
