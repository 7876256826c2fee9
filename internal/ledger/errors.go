package ledger

import (
	"errors"

	"github.com/sadikur-dev/mailreward/internal/storage"
)

var (
	ErrBadFormat              = errors.New("use format email:password")
	ErrBadEmailSyntax         = errors.New("invalid email format")
	ErrUnresolvableDomain     = errors.New("email domain not found")
	ErrDisposableEmail        = errors.New("disposable email detected")
	ErrWeakPassword           = errors.New("password too weak")
	ErrAwaitingDestination    = errors.New("a withdrawal destination is expected")

	// ErrNotAwaitingDestination is shared with the store, which re-checks the
	// awaiting flag under its row lock.
	ErrNotAwaitingDestination = storage.ErrNotAwaiting
	ErrInvalidDestination     = errors.New("invalid payout destination")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrForbidden              = errors.New("admin access required")
)

// rejectionReason maps a rejection to its metrics label. Unknown errors are
// transient storage failures and are not counted as rejections.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrBadFormat):
		return "bad_format"
	case errors.Is(err, ErrBadEmailSyntax):
		return "bad_email_syntax"
	case errors.Is(err, ErrUnresolvableDomain):
		return "unresolvable_domain"
	case errors.Is(err, ErrDisposableEmail):
		return "disposable_email"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrAwaitingDestination):
		return "awaiting_destination"
	case errors.Is(err, storage.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, storage.ErrQuotaExceeded):
		return "quota_exceeded"
	}
	return ""
}
