package playbook

import "sync"

// Locked serializes access to a single Playbook.
type Locked struct {
	mu sync.Mutex
	pb *Playbook
}

// NewLocked wraps pb. A nil pb is replaced by an empty playbook.
func NewLocked(pb *Playbook) *Locked {
	if pb == nil {
		pb = New()
	}
	return &Locked{pb: pb}
}

// Do runs fn while holding the lock. fn must not retain pb after returning.
func (l *Locked) Do(fn func(pb *Playbook) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.pb)
}

// Snapshot returns a deep copy of the wrapped playbook.
func (l *Locked) Snapshot() *Playbook {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pb.Clone()
}

// Replace swaps in pb, returning the previous playbook.
func (l *Locked) Replace(pb *Playbook) *Playbook {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.pb
	l.pb = pb
	return old
}
