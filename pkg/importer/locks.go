package importer

import "sync"

// stagedLocks serializes imports per staged-file ID so two concurrent
// requests cannot import the same staged archive twice.
type stagedLocks struct {
	mutexes sync.Map
}

func (l *stagedLocks) lock(id int) func() {
	v, _ := l.mutexes.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
