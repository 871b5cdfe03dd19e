package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...MemoryHandoffOption) *MemoryHandoffStore {
	t.Helper()
	s := NewMemoryHandoffStore(opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTakeAndClearDeliversOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64,AAEC", MIMEType: "image/png"}, ReturnTo: "/create"}
	if err := s.Put(ctx, "tab-1", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !s.Pending("tab-1") {
		t.Error("Expected record to be pending after Put")
	}

	got, err := s.TakeAndClear(ctx, "tab-1")
	if err != nil {
		t.Fatalf("TakeAndClear failed: %v", err)
	}
	if got == nil || got.PendingImage.DataURL != rec.PendingImage.DataURL || got.ReturnTo != "/create" {
		t.Fatalf("Expected %+v, got %+v", rec, got)
	}

	again, err := s.TakeAndClear(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Second TakeAndClear failed: %v", err)
	}
	if again != nil {
		t.Errorf("Expected nil on second take, got %+v", again)
	}
}

func TestTakeAndClearEmpty(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.TakeAndClear(context.Background(), "fresh-tab")
	if err != nil || rec != nil {
		t.Errorf("Expected (nil, nil), got (%+v, %v)", rec, err)
	}
}

func TestPutDefaultsReturnTo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.Put(ctx, "tab", HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64,AA=="}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	rec, _ := s.TakeAndClear(ctx, "tab")
	if rec.ReturnTo != DefaultReturnTo {
		t.Errorf("Expected %s, got %s", DefaultReturnTo, rec.ReturnTo)
	}
}

func TestPutOverQuotaWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithQuota(64))

	small := HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64,AA=="}, ReturnTo: "/create"}
	if err := s.Put(ctx, "tab", small); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	big := HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64," + strings.Repeat("A", 100)}, ReturnTo: "/other"}
	if err := s.Put(ctx, "tab", big); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}

	rec, _ := s.TakeAndClear(ctx, "tab")
	if rec == nil || rec.ReturnTo != "/create" || rec.PendingImage.DataURL != small.PendingImage.DataURL {
		t.Errorf("Expected the earlier record untouched, got %+v", rec)
	}
}

func TestTabsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_ = s.Put(ctx, "a", HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64,AA=="}})

	if rec, _ := s.TakeAndClear(ctx, "b"); rec != nil {
		t.Errorf("Expected nothing for another tab, got %+v", rec)
	}
	if rec, _ := s.TakeAndClear(ctx, "a"); rec == nil {
		t.Error("Expected record for its own tab")
	}
}

func TestExpiredRecordsAreNotDelivered(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithTTL(time.Minute), withClock(func() time.Time { return now }))

	_ = s.Put(ctx, "tab", HandoffRecord{PendingImage: EncodedImage{DataURL: "data:image/png;base64,AA=="}})
	now = now.Add(2 * time.Minute)

	if s.Pending("tab") {
		t.Error("Expected expired record not to be pending")
	}
	s.sweep()
	if rec, _ := s.TakeAndClear(ctx, "tab"); rec != nil {
		t.Errorf("Expected expired record to be gone, got %+v", rec)
	}
}

func TestClosedStore(t *testing.T) {
	s := NewMemoryHandoffStore()
	_ = s.Close()
	if err := s.Put(context.Background(), "tab", HandoffRecord{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
	if _, err := s.TakeAndClear(context.Background(), "tab"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
}
