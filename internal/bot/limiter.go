package bot

import "sync"

// ChatLimiter не даёт обрабатывать два апдейта одного чата одновременно:
// двойной клик по "Prenota" уходит в очередь, а не в гонку.
type ChatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{byID: make(map[int64]*chatLock)}
}

func (l *ChatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[chatID]
	if !ok {
		m = &chatLock{}
		l.byID[chatID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		l.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(l.byID, chatID)
		}
		l.mu.Unlock()
	}
}
