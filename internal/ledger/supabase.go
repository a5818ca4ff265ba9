package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const defaultSupabaseTable = "appointments"

// SupabaseConfig holds Supabase ledger settings.
type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

// Supabase writes appointment records to a Postgres table via the
// Supabase REST API.
type Supabase struct {
	client *supabase.Client
	table  string
}

// NewSupabase creates the Supabase-backed ledger.
func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	table := cfg.Table
	if table == "" {
		table = defaultSupabaseTable
	}
	return &Supabase{client: client, table: table}, nil
}

func (s *Supabase) Name() string { return "supabase" }

func (s *Supabase) Record(ctx context.Context, rec AppointmentRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusBooked
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var inserted []AppointmentRecord
	_, err := s.client.From(s.table).Insert(rec, false, "", "", "").ExecuteTo(&inserted)
	if err != nil {
		return "", fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (s *Supabase) UpdateStatus(ctx context.Context, id, status string) error {
	var updated []AppointmentRecord
	_, err := s.client.From(s.table).
		Update(map[string]string{"status": status}, "", "").
		Eq("id", id).
		ExecuteTo(&updated)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", id, err)
	}
	if len(updated) == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Supabase) Close() error { return nil }
