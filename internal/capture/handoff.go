package capture

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultReturnTo is where a capture page returns when no destination was recorded.
	DefaultReturnTo = "/create"
	// DefaultHandoffQuota mirrors the per-tab limit of browser session storage.
	DefaultHandoffQuota = 5 * 1024 * 1024
	// DefaultHandoffTTL drops records whose tab never came back.
	DefaultHandoffTTL = 30 * time.Minute
)

var (
	ErrQuotaExceeded = errors.New("handoff quota exceeded")
	ErrStoreClosed   = errors.New("handoff store is closed")
)

// HandoffRecord carries a captured image across a full page navigation.
type HandoffRecord struct {
	PendingImage EncodedImage `json:"pending_image"`
	ReturnTo     string       `json:"return_to"`
}

func (r HandoffRecord) size() int {
	return r.PendingImage.Size() + len(r.ReturnTo)
}

// HandoffStore is a tab-scoped slot holding at most one pending record.
type HandoffStore interface {
	// Put stores the record for tabID or fails without writing anything.
	Put(ctx context.Context, tabID string, rec HandoffRecord) error
	// TakeAndClear returns and removes the record for tabID. It returns
	// (nil, nil) when nothing is pending.
	TakeAndClear(ctx context.Context, tabID string) (*HandoffRecord, error)
}

// SanitizeReturnTo keeps same-origin absolute paths and replaces anything
// else with DefaultReturnTo.
func SanitizeReturnTo(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, `\`) {
		return DefaultReturnTo
	}
	u, err := url.Parse(returnTo)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultReturnTo
	}
	return u.Path
}

type storedRecord struct {
	rec      HandoffRecord
	storedAt time.Time
}

// MemoryHandoffStore keeps hand-off records in process memory.
type MemoryHandoffStore struct {
	mu      sync.Mutex
	records map[string]storedRecord
	quota   int
	ttl     time.Duration
	now     func() time.Time
	closed  bool
	done    chan struct{}
}

// MemoryHandoffOption configures a MemoryHandoffStore.
type MemoryHandoffOption func(*MemoryHandoffStore)

// WithQuota sets the per-tab byte quota.
func WithQuota(bytes int) MemoryHandoffOption {
	return func(s *MemoryHandoffStore) {
		s.quota = bytes
	}
}

// WithTTL sets how long an unclaimed record survives.
func WithTTL(ttl time.Duration) MemoryHandoffOption {
	return func(s *MemoryHandoffStore) {
		s.ttl = ttl
	}
}

func withClock(now func() time.Time) MemoryHandoffOption {
	return func(s *MemoryHandoffStore) {
		s.now = now
	}
}

// NewMemoryHandoffStore creates a store and starts its expiry sweep.
func NewMemoryHandoffStore(opts ...MemoryHandoffOption) *MemoryHandoffStore {
	s := &MemoryHandoffStore{
		records: make(map[string]storedRecord),
		quota:   DefaultHandoffQuota,
		ttl:     DefaultHandoffTTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

func (s *MemoryHandoffStore) Put(ctx context.Context, tabID string, rec HandoffRecord) error {
	if rec.ReturnTo == "" {
		rec.ReturnTo = DefaultReturnTo
	}
	if rec.size() > s.quota {
		return ErrQuotaExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.records[tabID] = storedRecord{rec: rec, storedAt: s.now()}
	return nil
}

func (s *MemoryHandoffStore) TakeAndClear(ctx context.Context, tabID string) (*HandoffRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	stored, ok := s.records[tabID]
	if !ok {
		return nil, nil
	}
	delete(s.records, tabID)
	if s.expired(stored) {
		return nil, nil
	}
	rec := stored.rec
	return &rec, nil
}

// Pending reports whether tabID has a record awaiting return.
func (s *MemoryHandoffStore) Pending(tabID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[tabID]
	return ok && !s.expired(stored)
}

// Close stops the sweep and rejects further operations.
func (s *MemoryHandoffStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.records = nil
	return nil
}

func (s *MemoryHandoffStore) expired(stored storedRecord) bool {
	return s.ttl > 0 && s.now().Sub(stored.storedAt) > s.ttl
}

func (s *MemoryHandoffStore) sweepLoop() {
	interval := s.ttl / 2
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryHandoffStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, stored := range s.records {
		if s.expired(stored) {
			delete(s.records, id)
		}
	}
}
