package audiocache

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPutGet(t *testing.T) {
	s := New(0)
	s.Put("CA1", 1, []byte("wav-bytes"), "audio/wav")

	a, err := s.Get("CA1", 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(a.Audio, []byte("wav-bytes")) || a.ContentType != "audio/wav" {
		t.Errorf("got %q/%q", a.Audio, a.ContentType)
	}

	// Repeated retrieval is allowed while the artifact lives.
	if _, err := s.Get("CA1", 1); err != nil {
		t.Errorf("second Get: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := New(0)
	if _, err := s.Get("CA1", 1); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("error = %v, want ErrArtifactNotFound", err)
	}
	s.Put("CA1", 1, []byte("x"), "audio/wav")
	if _, err := s.Get("CA1", 2); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("error = %v, want ErrArtifactNotFound", err)
	}
}

func TestDropCall(t *testing.T) {
	s := New(0)
	s.Put("CA1", 1, []byte("a"), "audio/wav")
	s.Put("CA1", 2, []byte("b"), "audio/wav")
	s.Put("CA2", 1, []byte("c"), "audio/wav")

	s.DropCall("CA1")

	if _, err := s.Get("CA1", 1); !errors.Is(err, ErrArtifactNotFound) {
		t.Error("CA1 artifact survived DropCall")
	}
	if _, err := s.Get("CA2", 1); err != nil {
		t.Errorf("CA2 artifact dropped: %v", err)
	}
}

func TestSweep(t *testing.T) {
	s := New(10 * time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Put("CA1", 1, []byte("old"), "audio/wav")

	s.now = func() time.Time { return base.Add(5 * time.Minute) }
	s.Put("CA1", 2, []byte("fresh"), "audio/wav")

	s.now = func() time.Time { return base.Add(11 * time.Minute) }
	if dropped := s.Sweep(); dropped != 1 {
		t.Fatalf("Sweep dropped %d, want 1", dropped)
	}
	if _, err := s.Get("CA1", 1); !errors.Is(err, ErrArtifactNotFound) {
		t.Error("aged artifact survived sweep")
	}
	if _, err := s.Get("CA1", 2); err != nil {
		t.Errorf("fresh artifact dropped: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
