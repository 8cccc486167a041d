package domain

import (
	"testing"
	"time"
)

func TestMergePreservesProtectedFields(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	existing := Order{
		ID:             "id-1",
		TrackingNumber: "TN-100",
		Status:         StatusSent,
		SendDate:       "2024-03-01",
		COD:            120,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	incoming := Order{
		ID:             "id-2",
		TrackingNumber: "TN-100",
		Status:         StatusDelivered,
		SendDate:       "2024-03-01",
		COD:            120,
		ActualCOD:      118,
		Source:         SourceDelivered,
		CreatedAt:      now,
	}

	merged := Merge(existing, incoming, now)

	if merged.ID != "id-1" {
		t.Fatalf("expected protected id id-1, got %s", merged.ID)
	}
	if !merged.CreatedAt.Equal(created) {
		t.Fatalf("expected protected createdAt %v, got %v", created, merged.CreatedAt)
	}
	if merged.Status != StatusDelivered {
		t.Fatalf("expected incoming status to win, got %s", merged.Status)
	}
	if merged.ActualCOD != 118 {
		t.Fatalf("expected incoming actualCod 118, got %v", merged.ActualCOD)
	}
	if !merged.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt %v, got %v", now, merged.UpdatedAt)
	}
}

func TestMergeKeepsExistingExtraWhenIncomingNil(t *testing.T) {
	now := time.Now()
	existing := Order{ID: "id-1", Extra: map[string]string{"carrier": "acme"}}
	incoming := Order{TrackingNumber: "TN-1"}

	merged := Merge(existing, incoming, now)
	if merged.Extra["carrier"] != "acme" {
		t.Fatalf("expected existing extra map to survive, got %v", merged.Extra)
	}

	incoming.Extra = map[string]string{"carrier": "other"}
	merged = Merge(existing, incoming, now)
	if merged.Extra["carrier"] != "other" {
		t.Fatalf("expected incoming extra map to win, got %v", merged.Extra)
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	o := Normalize(Order{TrackingNumber: "TN-1"}, now)
	if o.ID == "" {
		t.Fatal("expected generated id")
	}
	if o.WarningStatus != WarningNone {
		t.Fatalf("expected default warning status none, got %s", o.WarningStatus)
	}
	if !o.CreatedAt.Equal(now) || !o.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps set to now, got %v / %v", o.CreatedAt, o.UpdatedAt)
	}

	// Existing values are never overwritten.
	fixed := Normalize(Order{ID: "keep", CreatedAt: now.Add(-time.Hour)}, now)
	if fixed.ID != "keep" {
		t.Fatalf("expected id to be kept, got %s", fixed.ID)
	}
	if fixed.CreatedAt.Equal(now) {
		t.Fatal("expected createdAt to be kept")
	}
}

func TestHasRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{"complete", Order{ID: "a", TrackingNumber: "t", SendDate: "2024-01-01"}, true},
		{"missing id", Order{TrackingNumber: "t", SendDate: "2024-01-01"}, false},
		{"missing tracking number", Order{ID: "a", SendDate: "2024-01-01"}, false},
		{"missing send date", Order{ID: "a", TrackingNumber: "t"}, false},
	}
	for _, tt := range tests {
		if got := tt.order.HasRequiredFields(); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestStatusImpliedSource(t *testing.T) {
	if s := StatusImpliedSource(StatusDelivered); s != SourceDelivered {
		t.Fatalf("expected delivered source, got %s", s)
	}
	if s := StatusImpliedSource(StatusReturned); s != SourceReturned {
		t.Fatalf("expected returned source, got %s", s)
	}
	if s := StatusImpliedSource(StatusSent); s != SourceSent {
		t.Fatalf("expected sent source, got %s", s)
	}
}
