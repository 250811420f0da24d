package auth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrBadSignature   = errors.New("auth: malformed signature")
	ErrSignerMismatch = errors.New("auth: signature does not match player address")
)

// VerifySignature checks that signature is a valid EIP-191 personal-sign
// signature of message produced by the wallet behind playerAddress. The
// recovered signer is compared case-insensitively.
func VerifySignature(message, signature, playerAddress string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return ErrBadSignature
	}

	// Wallets return V as 27/28, crypto.SigToPub expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return ErrBadSignature
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), playerAddress) {
		return ErrSignerMismatch
	}
	return nil
}

// IsValidAddress reports whether s is 0x followed by 40 hex characters.
func IsValidAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	return common.IsHexAddress(s)
}
