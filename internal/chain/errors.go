package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the structured classification of a chain failure. Handlers
// and the client queue branch on Kind instead of scraping error text; the
// text matching against go-ethereum's messages happens once, in Classify.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInsufficientFunds
	KindExecutionReverted
	KindUnauthorizedRole
	KindNonceConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindExecutionReverted:
		return "execution_reverted"
	case KindUnauthorizedRole:
		return "unauthorized_role"
	case KindNonceConflict:
		return "nonce_conflict"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chain: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind extracts the classification from any error, defaulting to unknown.
func Kind(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Classify wraps a raw node/contract error with its kind. The substrings
// come from go-ethereum and OpenZeppelin AccessControl revert text.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	kind := KindUnknown
	switch {
	case strings.Contains(msg, "AccessControlUnauthorizedAccount"):
		kind = KindUnauthorizedRole
	case strings.Contains(msg, "insufficient funds"):
		kind = KindInsufficientFunds
	case strings.Contains(msg, "execution reverted"):
		kind = KindExecutionReverted
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "replacement transaction underpriced"),
		strings.Contains(msg, "higher priority"):
		kind = KindNonceConflict
	}
	return &Error{Kind: kind, Err: err}
}
