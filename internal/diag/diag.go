// Package diag implements the bounded diagnostic log shown to users.
//
// The log is a fixed-capacity ring buffer read newest-first. Appends are
// serialized, so concurrent completion callbacks never lose or corrupt entries.
// Every entry is also mirrored to the structured process logger.
package diag

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/zjrosen/soundcheck/internal/log"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 100

// Severity classifies a log entry.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a single immutable log record.
type Entry struct {
	ID       string
	Time     time.Time
	Message  string
	Severity Severity
}

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(l *Log) { l.clock = clock }
}

// WithOnAppend registers a hook called after every append, outside the lock.
func WithOnAppend(fn func(Entry)) Option {
	return func(l *Log) { l.onAppend = fn }
}

// Log is a bounded newest-first ring buffer of entries.
type Log struct {
	mu       sync.Mutex
	buf      []Entry
	head     int // index of the next write
	size     int
	clock    Clock
	onAppend func(Entry)
}

// New creates a log holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{
		buf:   make([]Entry, capacity),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Capacity returns the maximum number of entries retained.
func (l *Log) Capacity() int {
	return len(l.buf)
}

// Append records a message, evicting the oldest entry when full.
func (l *Log) Append(message string, severity Severity) Entry {
	entry := Entry{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
	}

	l.mu.Lock()
	entry.Time = l.clock()
	l.buf[l.head] = entry
	l.head = (l.head + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
	hook := l.onAppend
	l.mu.Unlock()

	mirror(entry)
	if hook != nil {
		hook(entry)
	}
	return entry
}

// Entries returns every entry, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collectLocked(nil)
}

// Query returns entries whose message contains substr, compared with Unicode
// case folding, newest first. An empty substr matches everything.
func (l *Log) Query(substr string) []Entry {
	if substr == "" {
		return l.Entries()
	}

	fold := cases.Fold()
	needle := fold.String(substr)

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collectLocked(func(e Entry) bool {
		return strings.Contains(fold.String(e.Message), needle)
	})
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Clear empties the log and records that it was cleared.
func (l *Log) Clear() {
	l.mu.Lock()
	for i := range l.buf {
		l.buf[i] = Entry{}
	}
	entry := Entry{
		ID:       uuid.NewString(),
		Message:  "Logs cleared",
		Severity: Info,
		Time:     l.clock(),
	}
	l.buf[0] = entry
	l.head = 1 % len(l.buf)
	l.size = 1
	hook := l.onAppend
	l.mu.Unlock()

	mirror(entry)
	if hook != nil {
		hook(entry)
	}
}

// collectLocked walks the ring newest-first. Must be called with mu held.
func (l *Log) collectLocked(keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, l.size)
	n := len(l.buf)
	for i := 0; i < l.size; i++ {
		e := l.buf[(l.head-1-i+n)%n]
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func mirror(e Entry) {
	switch e.Severity {
	case Error:
		log.Error(log.CatDiag, e.Message, "severity", e.Severity.String(), "id", e.ID)
	case Warning:
		log.Warn(log.CatDiag, e.Message, "severity", e.Severity.String(), "id", e.ID)
	default:
		log.Info(log.CatDiag, e.Message, "severity", e.Severity.String(), "id", e.ID)
	}
}
