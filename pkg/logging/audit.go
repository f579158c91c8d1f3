// Package logging holds the audit trail of executed console lines: an
// in-memory ring buffer with subscriptions plus an optional rotating
// file writer.
package logging

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the ring capacity used when none is given.
const DefaultBufferSize = 1024

// Record is one executed line as stored in the audit log.
type Record struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Session  string    `json:"session"` // "s1", "serial", "api"
	Remote   string    `json:"remote,omitempty"`
	Line     string    `json:"line"`
	Command  string    `json:"command"` // resolved name, or the typed token when resolution failed
	Outcome  string    `json:"outcome"` // "ok", "unknown", "ambiguous", "too_many_args"
	UserArgs int       `json:"user_args"`
}

// AuditLog is a thread-safe circular buffer of recent records.
type AuditLog struct {
	mu    sync.RWMutex
	buf   []Record
	size  int
	head  int // next write position
	count int

	seq     atomic.Uint64
	dropped atomic.Uint64

	subMu sync.RWMutex
	subs  map[*Subscription]struct{}
}

// Subscription receives new records from an AuditLog.
type Subscription struct {
	C  chan Record
	al *AuditLog
}

// Close unsubscribes. The channel is not closed; a receiver selecting on
// it alongside a done signal never sees a spurious zero value.
func (s *Subscription) Close() {
	s.al.unsubscribe(s)
}

// NewAuditLog creates an audit log with the given ring capacity.
func NewAuditLog(size int) *AuditLog {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &AuditLog{
		buf:  make([]Record, size),
		size: size,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add stamps rec with the next sequence number (and the current time if
// unset), stores it, overwriting the oldest when full, and notifies
// subscribers non-blocking. The stored record is returned.
func (al *AuditLog) Add(rec Record) Record {
	rec.Seq = al.seq.Add(1)
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	al.mu.Lock()
	al.buf[al.head] = rec
	al.head = (al.head + 1) % al.size
	if al.count < al.size {
		al.count++
	}
	al.mu.Unlock()

	al.subMu.RLock()
	for sub := range al.subs {
		select {
		case sub.C <- rec:
		default:
			al.dropped.Add(1)
		}
	}
	al.subMu.RUnlock()
	return rec
}

// Subscribe returns a Subscription receiving every record added from now
// on. Slow subscribers drop records rather than stalling Add; drops are
// counted on the log. Call Close on the subscription when done.
func (al *AuditLog) Subscribe(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 64
	}
	sub := &Subscription{
		C:  make(chan Record, bufSize),
		al: al,
	}
	al.subMu.Lock()
	al.subs[sub] = struct{}{}
	al.subMu.Unlock()
	return sub
}

func (al *AuditLog) unsubscribe(sub *Subscription) {
	al.subMu.Lock()
	delete(al.subs, sub)
	al.subMu.Unlock()
}

// Len returns the number of records currently held.
func (al *AuditLog) Len() int {
	al.mu.RLock()
	defer al.mu.RUnlock()
	return al.count
}

// Seq returns the sequence number of the most recent record, which is
// also the total number of records ever added.
func (al *AuditLog) Seq() uint64 {
	return al.seq.Load()
}

// Dropped returns the total records dropped across all subscriptions.
func (al *AuditLog) Dropped() uint64 {
	return al.dropped.Load()
}

// Filter selects records by case-insensitive substring match; empty
// fields match everything.
type Filter struct {
	Session string
	Command string
	Outcome string
}

// IsEmpty reports whether no criteria are set.
func (f Filter) IsEmpty() bool {
	return f.Session == "" && f.Command == "" && f.Outcome == ""
}

func (f Filter) matches(rec *Record) bool {
	if f.Session != "" && !strings.Contains(strings.ToLower(rec.Session), strings.ToLower(f.Session)) {
		return false
	}
	if f.Command != "" && !strings.Contains(strings.ToLower(rec.Command), strings.ToLower(f.Command)) {
		return false
	}
	if f.Outcome != "" && !strings.Contains(strings.ToLower(rec.Outcome), strings.ToLower(f.Outcome)) {
		return false
	}
	return true
}

// Latest returns the most recent n records, newest first.
func (al *AuditLog) Latest(n int) []Record {
	al.mu.RLock()
	defer al.mu.RUnlock()

	if n > al.count {
		n = al.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Record, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recent entry.
		idx := (al.head - 1 - i + al.size) % al.size
		result[i] = al.buf[idx]
	}
	return result
}

// LatestFiltered returns the most recent n records matching the filter,
// newest first.
func (al *AuditLog) LatestFiltered(n int, f Filter) []Record {
	al.mu.RLock()
	defer al.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var result []Record
	for i := 0; i < al.count && len(result) < n; i++ {
		idx := (al.head - 1 - i + al.size) % al.size
		if f.matches(&al.buf[idx]) {
			result = append(result, al.buf[idx])
		}
	}
	return result
}
