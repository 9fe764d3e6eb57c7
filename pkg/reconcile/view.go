package reconcile

import (
	"sort"
	"sync"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// View is a viewer's local copy of the board, newest message first.
type View struct {
	mu   sync.RWMutex
	msgs []wire.Message
}

// ApplySnapshot replaces the view with msgs ordered newest-first by
// CreatedAt. Messages with equal timestamps keep their relative order.
func (v *View) ApplySnapshot(msgs []wire.Message) {
	next := make([]wire.Message, len(msgs))
	copy(next, msgs)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].CreatedAt.After(next[j].CreatedAt)
	})

	v.mu.Lock()
	v.msgs = next
	v.mu.Unlock()
}

// ApplyAdded puts m at the front of the view without re-sorting.
func (v *View) ApplyAdded(m wire.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := make([]wire.Message, 0, len(v.msgs)+1)
	next = append(next, m)
	v.msgs = append(next, v.msgs...)
}

// Messages returns a copy of the view.
func (v *View) Messages() []wire.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]wire.Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}
