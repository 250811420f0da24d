package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	constants "github.com/nadmetry/scorerelay/internal/constants"
)

var ErrNoSecret = errors.New("auth: session secret is not configured")

// SessionTokenAuthority derives short-lived proof-of-session tokens from a
// process-wide secret. Tokens are never stored; validation recomputes the
// expected token for each 30-second bucket inside the validity window.
type SessionTokenAuthority struct {
	secret string
	now    func() time.Time
}

func NewSessionTokenAuthority(secret string) (*SessionTokenAuthority, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &SessionTokenAuthority{secret: secret, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (a *SessionTokenAuthority) WithClock(now func() time.Time) *SessionTokenAuthority {
	a.now = now
	return a
}

// BucketTimestamp floors t to the token bucket boundary. Callers floor
// before issuing so that two issues within the same bucket agree.
func BucketTimestamp(t time.Time) int64 {
	bucket := constants.TokenBucket.Milliseconds()
	return t.UnixMilli() / bucket * bucket
}

// Issue returns the token for a player address and a pre-floored bucket
// timestamp (unix milliseconds). Deterministic: same inputs, same token.
func (a *SessionTokenAuthority) Issue(playerAddress string, bucketMillis int64) string {
	data := fmt.Sprintf("%s-%d-%s", playerAddress, bucketMillis, a.secret)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Validate walks every token bucket from now back through the validity
// window and accepts if any recomputed token matches. Invalid tokens are
// never an error, just a false.
func (a *SessionTokenAuthority) Validate(token, playerAddress string) bool {
	now := a.now().UnixMilli()
	step := constants.TokenBucket.Milliseconds()
	window := constants.TokenWindow.Milliseconds()

	for i := int64(0); i < window; i += step {
		bucket := (now - i) / step * step
		if token == a.Issue(playerAddress, bucket) {
			return true
		}
	}
	return false
}

// ExpiresAt reports when a token issued for bucketMillis stops validating.
func ExpiresAt(bucketMillis int64) int64 {
	return bucketMillis + constants.TokenWindow.Milliseconds()
}
