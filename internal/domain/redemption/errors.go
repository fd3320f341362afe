package redemption

import "fmt"

// Kind classifies a failed redemption or key creation
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindExpired         Kind = "Expired"
	KindExhausted       Kind = "Exhausted"
	KindDuplicateCode   Kind = "DuplicateCode"
	KindAlreadyRedeemed Kind = "AlreadyRedeemed"
)

// Error is surfaced verbatim to admins and users
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("redemption code %s not found", e.Code)
	case KindExpired:
		return fmt.Sprintf("redemption code %s has expired", e.Code)
	case KindExhausted:
		return fmt.Sprintf("redemption code %s has no uses left", e.Code)
	case KindDuplicateCode:
		return fmt.Sprintf("redemption code %s already exists", e.Code)
	case KindAlreadyRedeemed:
		return fmt.Sprintf("redemption code %s was already redeemed by this account", e.Code)
	default:
		return fmt.Sprintf("redemption code %s failed: %s", e.Code, e.Kind)
	}
}

// Is matches another *Error of the same kind. A target without a kind matches any kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrExpired         = &Error{Kind: KindExpired}
	ErrExhausted       = &Error{Kind: KindExhausted}
	ErrDuplicateCode   = &Error{Kind: KindDuplicateCode}
	ErrAlreadyRedeemed = &Error{Kind: KindAlreadyRedeemed}
)
