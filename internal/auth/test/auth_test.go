package main

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	auth "github.com/nadmetry/scorerelay/internal/auth"
)

const testAddr = "0x1234567890abcdef1234567890abcdef12345678"

func testAuthority(t *testing.T, now time.Time) *auth.SessionTokenAuthority {
	t.Helper()
	a, err := auth.NewSessionTokenAuthority("test-secret")
	if err != nil {
		t.Fatalf("NewSessionTokenAuthority: %v", err)
	}
	return a.WithClock(func() time.Time { return now })
}

func TestNewAuthorityRequiresSecret(t *testing.T) {
	if _, err := auth.NewSessionTokenAuthority(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestIssueDeterministic(t *testing.T) {
	now := time.Now()
	a := testAuthority(t, now)
	bucket := auth.BucketTimestamp(now)
	if a.Issue(testAddr, bucket) != a.Issue(testAddr, bucket) {
		t.Error("Same inputs must yield the same token")
	}
	other := auth.BucketTimestamp(now.Add(30 * time.Second))
	if a.Issue(testAddr, bucket) == a.Issue(testAddr, other) {
		t.Error("Different buckets must yield different tokens")
	}
}

func TestBucketTimestampFloors(t *testing.T) {
	base := time.UnixMilli(1_700_000_010_000)
	b1 := auth.BucketTimestamp(base)
	if b1%30000 != 0 {
		t.Errorf("Bucket %d not on a 30s boundary", b1)
	}
	b2 := auth.BucketTimestamp(base.Add(5 * time.Second))
	if b1 != b2 {
		t.Errorf("Timestamps inside one bucket disagree: %d vs %d", b1, b2)
	}
}

func TestValidateAcrossWindow(t *testing.T) {
	issued := time.Now()
	bucket := auth.BucketTimestamp(issued)
	cases := []struct {
		name  string
		skew  time.Duration
		valid bool
	}{
		{"immediately", 0, true},
		{"one bucket later", 30 * time.Second, true},
		{"mid window", 2 * time.Minute, true},
		{"near window edge", 4*time.Minute + 29*time.Second, true},
		{"past window", 6 * time.Minute, false},
	}
	for _, c := range cases {
		a := testAuthority(t, issued.Add(c.skew))
		token := a.Issue(testAddr, bucket)
		if got := a.Validate(token, testAddr); got != c.valid {
			t.Errorf("Validate %s = %v, want %v", c.name, got, c.valid)
		}
	}
}

func TestValidateRejectsOtherAddress(t *testing.T) {
	now := time.Now()
	a := testAuthority(t, now)
	token := a.Issue(testAddr, auth.BucketTimestamp(now))
	if a.Validate(token, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd") {
		t.Error("Token for one address validated for another")
	}
	if a.Validate("deadbeef", testAddr) {
		t.Error("Garbage token validated")
	}
}

func TestExpiresAt(t *testing.T) {
	bucket := auth.BucketTimestamp(time.Now())
	if auth.ExpiresAt(bucket) != bucket+300000 {
		t.Errorf("ExpiresAt = %d, want bucket+300000", auth.ExpiresAt(bucket))
	}
}

func signMessage(t *testing.T, message string) (signature, address string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Present V as 27/28 the way wallets do.
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestVerifySignature(t *testing.T) {
	message := "Authenticate for score submission: player"
	sig, addr := signMessage(t, message)

	if err := auth.VerifySignature(message, sig, addr); err != nil {
		t.Errorf("Valid signature rejected: %v", err)
	}
	if err := auth.VerifySignature(message, sig, testAddr); err != auth.ErrSignerMismatch {
		t.Errorf("Wrong address: got %v, want ErrSignerMismatch", err)
	}
	if err := auth.VerifySignature("a different message", sig, addr); err != auth.ErrSignerMismatch {
		t.Errorf("Wrong message: got %v, want ErrSignerMismatch", err)
	}
	if err := auth.VerifySignature(message, "0x00", addr); err != auth.ErrBadSignature {
		t.Errorf("Short signature: got %v, want ErrBadSignature", err)
	}
	if err := auth.VerifySignature(message, "not-hex", addr); err != auth.ErrBadSignature {
		t.Errorf("Non-hex signature: got %v, want ErrBadSignature", err)
	}
}

func TestIsValidAddress(t *testing.T) {
	cases := []struct {
		addr  string
		valid bool
	}{
		{testAddr, true},
		{"0x" + "A1b2C3d4E5f6A1b2C3d4E5f6A1b2C3d4E5f6A1b2", true},
		{"1234567890abcdef1234567890abcdef12345678", false},
		{"0x1234", false},
		{"0x1234567890abcdef1234567890abcdef123456789", false},
		{"0xg234567890abcdef1234567890abcdef12345678", false},
		{"", false},
	}
	for _, c := range cases {
		if got := auth.IsValidAddress(c.addr); got != c.valid {
			t.Errorf("IsValidAddress(%q) = %v, want %v", c.addr, got, c.valid)
		}
	}
}
