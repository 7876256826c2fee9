package validator

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestValidator(lookupErr error) *EmailValidator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	v := New(log)
	v.lookupMX = func(_ context.Context, _ string) error {
		return lookupErr
	}
	return v
}

func TestCheckEmailSyntax(t *testing.T) {
	v := newTestValidator(nil)

	bad := []string{"", "plain", "no-at.com", "a@b", "two@@b.com", "a@b@c.com"}
	for _, email := range bad {
		require.Equal(t, VerdictBadSyntax, v.CheckEmail(context.Background(), email), "email %q", email)
	}

	require.Equal(t, VerdictOK, v.CheckEmail(context.Background(), "user@mail.com"))
}

func TestCheckEmailFailClosed(t *testing.T) {
	v := newTestValidator(errors.New("dns timeout"))

	// a lookup failure is never treated as acceptance
	require.Equal(t, VerdictUnresolvableDomain, v.CheckEmail(context.Background(), "user@mail.com"))
}

func TestCheckEmailDisposable(t *testing.T) {
	v := newTestValidator(nil)
	v.setDisposable(parseDomainList("tempmail.com\n  Trashbox.NET \n\n"))

	require.Equal(t, VerdictDisposable, v.CheckEmail(context.Background(), "x@tempmail.com"))
	require.Equal(t, VerdictDisposable, v.CheckEmail(context.Background(), "x@TempMail.com"))
	require.Equal(t, VerdictDisposable, v.CheckEmail(context.Background(), "x@trashbox.net"))
	require.Equal(t, VerdictOK, v.CheckEmail(context.Background(), "x@mail.com"))
}

func TestParseDomainList(t *testing.T) {
	domains := parseDomainList("a.com\nB.com\r\n\n a.com ")
	require.Len(t, domains, 2)
	require.Contains(t, domains, "a.com")
	require.Contains(t, domains, "b.com")
}

func TestPasswordStrong(t *testing.T) {
	v := newTestValidator(nil)

	require.True(t, v.PasswordStrong("abc123"))
	require.True(t, v.PasswordStrong("1234567"))
	require.False(t, v.PasswordStrong("abc12"), "too short")
	require.False(t, v.PasswordStrong("abcdef"), "no digit")
	require.False(t, v.PasswordStrong(""))
}
