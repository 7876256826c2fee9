package validator

import (
	"context"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Verdict classifies an email address.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictBadSyntax
	VerdictUnresolvableDomain
	VerdictDisposable
)

type Validator interface {
	CheckEmail(ctx context.Context, email string) Verdict
	PasswordStrong(password string) bool
}

var (
	emailRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

const mxLookupTimeout = 5 * time.Second

// EmailValidator checks syntax, MX resolvability and disposable-domain
// membership. A failed or timed-out MX lookup counts as unresolvable, never
// as acceptance.
type EmailValidator struct {
	log      *logrus.Logger
	lookupMX func(ctx context.Context, domain string) error

	mu         sync.RWMutex
	disposable map[string]struct{}
}

func New(log *logrus.Logger) *EmailValidator {
	resolver := &net.Resolver{}
	return &EmailValidator{
		log: log,
		lookupMX: func(ctx context.Context, domain string) error {
			_, err := resolver.LookupMX(ctx, domain)
			return err
		},
		disposable: make(map[string]struct{}),
	}
}

func (v *EmailValidator) CheckEmail(ctx context.Context, email string) Verdict {
	if !emailRe.MatchString(email) {
		return VerdictBadSyntax
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	lookupCtx, cancel := context.WithTimeout(ctx, mxLookupTimeout)
	defer cancel()
	if err := v.lookupMX(lookupCtx, domain); err != nil {
		v.log.WithFields(logrus.Fields{"domain": domain}).Debugf("mx lookup failed: %v", err)
		return VerdictUnresolvableDomain
	}

	v.mu.RLock()
	_, bad := v.disposable[domain]
	v.mu.RUnlock()
	if bad {
		return VerdictDisposable
	}

	return VerdictOK
}

// PasswordStrong requires at least six characters and at least one digit.
func (v *EmailValidator) PasswordStrong(password string) bool {
	return len(password) >= 6 && digitRe.MatchString(password)
}
