package speech

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenMinter("test-secret", time.Minute)

	token := m.Create("CA123", 4)
	if !m.Validate("CA123", 4, token) {
		t.Fatal("freshly minted token failed validation")
	}
}

func TestTokenSingleCharacterMutation(t *testing.T) {
	m := NewTokenMinter("test-secret", time.Minute)
	token := m.Create("CA123", 4)

	for i := 0; i < len(token); i++ {
		mutated := []byte(token)
		if mutated[i] == 'f' {
			mutated[i] = '0'
		} else {
			mutated[i] = 'f'
		}
		if string(mutated) == token {
			continue
		}
		if m.Validate("CA123", 4, string(mutated)) {
			t.Fatalf("mutated token at position %d validated: %s", i, mutated)
		}
	}
}

func TestTokenWrongArtifact(t *testing.T) {
	m := NewTokenMinter("test-secret", time.Minute)
	token := m.Create("CA123", 4)

	if m.Validate("CA123", 5, token) {
		t.Error("token validated for different seq")
	}
	if m.Validate("CA999", 4, token) {
		t.Error("token validated for different call")
	}
}

func TestTokenExpiry(t *testing.T) {
	m := NewTokenMinter("test-secret", time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	token := m.Create("CA123", 1)

	// Just before expiry: valid. Just after: rejected even though the
	// signature is intact.
	m.now = func() time.Time { return now.Add(59 * time.Second) }
	if !m.Validate("CA123", 1, token) {
		t.Error("token rejected before expiry")
	}
	m.now = func() time.Time { return now.Add(61 * time.Second) }
	if m.Validate("CA123", 1, token) {
		t.Error("expired token validated")
	}
}

func TestTokenDifferentSecret(t *testing.T) {
	token := NewTokenMinter("secret-a", time.Minute).Create("CA123", 1)
	if NewTokenMinter("secret-b", time.Minute).Validate("CA123", 1, token) {
		t.Error("token minted with different secret validated")
	}
}

func TestTokenMalformed(t *testing.T) {
	m := NewTokenMinter("test-secret", time.Minute)
	for _, tok := range []string{"", "no-dot", "notanumber.deadbeef", strings.Repeat(".", 3)} {
		if m.Validate("CA123", 1, tok) {
			t.Errorf("malformed token %q validated", tok)
		}
	}
}
