package runtime

import "sync"

// handleTable issues the opaque uint64 handles that cross the plugin
// boundary. A handle is live from allocation until release; zero is never
// issued, and released ids are not reused while the process runs.
type handleTable struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]interface{}
}

func newHandleTable() *handleTable {
	return &handleTable{entries: make(map[uint64]interface{})}
}

func (t *handleTable) put(v interface{}) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = v
	return t.next
}

func (t *handleTable) get(id uint64) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[id]
	return v, ok
}

func (t *handleTable) release(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *handleTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
