// Package ledger implements the append-only expense ledger owned by one
// user session. Records are never edited or removed; the whole ledger is
// discarded when its session ends.
package ledger

import (
	"sync"

	"spendsight/internal/core"
)

type Ledger struct {
	mu    sync.Mutex
	items []core.Record
}

func New() *Ledger {
	return &Ledger{}
}

// Append adds the record at the end of the ledger. The record is expected to
// be validated at the form boundary; Append itself imposes no constraints.
func (l *Ledger) Append(r core.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, r)
}

// Snapshot returns the records in insertion order. The returned slice is a
// copy; callers may not mutate ledger state through it.
func (l *Ledger) Snapshot() []core.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Record, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the number of records without copying.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
