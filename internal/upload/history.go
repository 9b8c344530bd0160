package upload

import "sync"

// History is the per-user append-only log of photos. It is only consulted to find the
// session a cancel action refers to, because the cancel callback carries no id.
type History struct {
	mu      sync.RWMutex
	records map[string][]PhotoRecord
	limit   int
}

// NewHistory creates an empty History. A positive limit keeps only the newest records per user.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{
		records: make(map[string][]PhotoRecord),
		limit:   limit,
	}
}

// Append adds record to the end of the user's log.
func (h *History) Append(userID string, record PhotoRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.records[userID], record)
	if h.limit > 0 && len(list) > h.limit {
		list = append([]PhotoRecord(nil), list[len(list)-h.limit:]...)
	}
	h.records[userID] = list
}

// Latest returns the most recently appended record for the user.
func (h *History) Latest(userID string) (PhotoRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.records[userID]
	if len(list) == 0 {
		return PhotoRecord{}, false
	}
	return list[len(list)-1], true
}

// Records returns a copy of the user's log, oldest first.
func (h *History) Records(userID string) []PhotoRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]PhotoRecord(nil), h.records[userID]...)
}

// Users returns the number of users with at least one record.
func (h *History) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
