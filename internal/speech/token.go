package speech

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTokenInvalid is reported for malformed, tampered, or expired audio
// access tokens.
var ErrTokenInvalid = errors.New("audio token invalid or expired")

// DefaultTokenTTL is how long a minted audio token stays valid.
const DefaultTokenTTL = 300 * time.Second

// TokenMinter issues and checks the short-lived HMAC tokens that gate the
// ephemeral audio endpoint. Token format: "{expiry}.{hex_signature}" where
// the signature is HMAC-SHA256 over "{call_id}:{seq}:{expiry}".
type TokenMinter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenMinter creates a minter with the shared secret. A zero ttl means
// DefaultTokenTTL.
func NewTokenMinter(secret string, ttl time.Duration) *TokenMinter {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenMinter{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Create mints a token for one audio artifact.
func (m *TokenMinter) Create(callID string, seq int) string {
	expiry := m.now().Add(m.ttl).Unix()
	return fmt.Sprintf("%d.%s", expiry, m.sign(callID, seq, expiry))
}

// Validate reports whether token grants access to (callID, seq) right now.
// Comparison is constant-time.
func (m *TokenMinter) Validate(callID string, seq int, token string) bool {
	expiryStr, sig, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return false
	}
	if m.now().Unix() > expiry {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(m.sign(callID, seq, expiry)))
}

func (m *TokenMinter) sign(callID string, seq int, expiry int64) string {
	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s:%d:%d", callID, seq, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}
