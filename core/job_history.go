package core

import (
	"slices"
	"sync"
)

const defaultJobHistoryCapacity = 100

// executionHistory keeps the last keep execution records in arrival order.
// Records are appended to a buffer twice that size; once it fills up the
// newest keep records are shifted to the front.
type executionHistory struct {
	mu      sync.Mutex
	keep    int
	records []JobExecutionRecord
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultJobHistoryCapacity
	}
	return &executionHistory{
		keep:    capacity,
		records: make([]JobExecutionRecord, 0, 2*capacity),
	}
}

func (h *executionHistory) Add(record JobExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == cap(h.records) {
		n := copy(h.records, h.records[len(h.records)-h.keep+1:])
		clear(h.records[n:])
		h.records = h.records[:n]
	}
	h.records = append(h.records, record)
}

// window returns the retained records, oldest first. Callers hold mu.
func (h *executionHistory) window() []JobExecutionRecord {
	if len(h.records) > h.keep {
		return h.records[len(h.records)-h.keep:]
	}
	return h.records
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *executionHistory) Recent(limit int) []JobExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	w := h.window()
	if len(w) == 0 {
		return nil
	}
	if limit > 0 && limit < len(w) {
		w = w[len(w)-limit:]
	}
	out := slices.Clone(w)
	slices.Reverse(out)
	return out
}

func (h *executionHistory) Last() (JobExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return JobExecutionRecord{}, false
	}
	return h.records[len(h.records)-1], true
}
