package metrics

import (
	"sync"
	"sync/atomic"
)

// OperationKey identifies one operation outcome series.
type OperationKey struct {
	Operation string
	Outcome   string
}

// Snapshot is a point-in-time copy of a Tally.
type Snapshot struct {
	Operations   map[OperationKey]uint64
	RateLimited  map[string]uint64
	AuditDropped uint64
	MailDropped  uint64
}

// Tally keeps process-local counts of the same events a Recorder exports,
// for pull-based exporters that read a snapshot on each collection. A nil
// *Tally records nothing.
type Tally struct {
	mu           sync.Mutex
	operations   map[OperationKey]uint64
	rateLimited  map[string]uint64
	auditDropped atomic.Uint64
	mailDropped  atomic.Uint64
}

func NewTally() *Tally {
	return &Tally{
		operations:  make(map[OperationKey]uint64),
		rateLimited: make(map[string]uint64),
	}
}

func (t *Tally) Operation(operation, outcome string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.operations[OperationKey{Operation: operation, Outcome: outcome}]++
	t.mu.Unlock()
}

func (t *Tally) RateLimited(endpoint string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rateLimited[endpoint]++
	t.mu.Unlock()
}

func (t *Tally) AuditDropped() {
	if t == nil {
		return
	}
	t.auditDropped.Add(1)
}

func (t *Tally) MailDropped() {
	if t == nil {
		return
	}
	t.mailDropped.Add(1)
}

// Snapshot copies the current counts.
func (t *Tally) Snapshot() Snapshot {
	out := Snapshot{
		Operations:  make(map[OperationKey]uint64),
		RateLimited: make(map[string]uint64),
	}
	if t == nil {
		return out
	}

	t.mu.Lock()
	for k, v := range t.operations {
		out.Operations[k] = v
	}
	for k, v := range t.rateLimited {
		out.RateLimited[k] = v
	}
	t.mu.Unlock()

	out.AuditDropped = t.auditDropped.Load()
	out.MailDropped = t.mailDropped.Load()
	return out
}
