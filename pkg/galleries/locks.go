package galleries

import "sync"

// entityLocks serializes filesystem-mutating operations per gallery ID so two
// concurrent requests cannot move or delete the same archive file twice.
type entityLocks struct {
	mutexes sync.Map
}

func (l *entityLocks) lock(id int) func() {
	v, _ := l.mutexes.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
