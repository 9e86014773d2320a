package credential

import (
	"container/list"

	"antigravity2api-go/internal/monitoring"
)

// stickyTable binds session ids to account emails. Capacity is fixed;
// insertion order drives eviction, so the longest-bound session goes
// first. Callers hold the manager lock.
type stickyTable struct {
	capacity int
	order    *list.List               // of string session id
	entries  map[string]*stickyRecord // session id → record
}

type stickyRecord struct {
	email string
	elem  *list.Element
}

func newStickyTable(capacity int) *stickyTable {
	return &stickyTable{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*stickyRecord),
	}
}

func (t *stickyTable) get(sessionID string) (string, bool) {
	rec, ok := t.entries[sessionID]
	if !ok {
		return "", false
	}
	return rec.email, true
}

// put binds sessionID to email. Rebinding an existing session keeps its
// original insertion position.
func (t *stickyTable) put(sessionID, email string) {
	if rec, ok := t.entries[sessionID]; ok {
		rec.email = email
		return
	}
	for t.order.Len() >= t.capacity {
		oldest := t.order.Front()
		t.order.Remove(oldest)
		delete(t.entries, oldest.Value.(string))
	}
	elem := t.order.PushBack(sessionID)
	t.entries[sessionID] = &stickyRecord{email: email, elem: elem}
	monitoring.StickySessionSize.Set(float64(t.order.Len()))
}

// dropAccount removes every binding pointing at email, used when an
// account disappears on reload.
func (t *stickyTable) dropAccount(email string) {
	for sid, rec := range t.entries {
		if rec.email == email {
			t.order.Remove(rec.elem)
			delete(t.entries, sid)
		}
	}
	monitoring.StickySessionSize.Set(float64(t.order.Len()))
}
