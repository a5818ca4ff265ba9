package ledger

import (
	"context"
	"testing"
)

func TestMemoryRecordDefaults(t *testing.T) {
	m := NewMemory()
	id, err := m.Record(context.Background(), AppointmentRecord{
		PatientName: "Carlos",
		Doctor:      "Dra. Rodríguez",
		StartISO:    "2026-09-01T09:00:00-05:00",
		CallID:      "CA1",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("empty record id")
	}

	rec, ok := m.Get(id)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Status != StatusBooked {
		t.Errorf("Status = %q, want booked", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestMemoryUpdateStatus(t *testing.T) {
	m := NewMemory()
	id, _ := m.Record(context.Background(), AppointmentRecord{CallID: "CA1"})

	if err := m.UpdateStatus(context.Background(), id, StatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	rec, _ := m.Get(id)
	if rec.Status != StatusConfirmed {
		t.Errorf("Status = %q, want confirmed", rec.Status)
	}

	if err := m.UpdateStatus(context.Background(), "missing", StatusCancelled); err != ErrRecordNotFound {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}
