package edgeauth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelsync/internal/edgeauth"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueProducesTildeDelimitedToken(t *testing.T) {
	issuer, err := edgeauth.NewIssuer("secret", "/*", 2000*time.Second)
	require.NoError(t, err)

	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cred := issuer.WithClock(fixedClock(start)).Issue()

	assert.True(t, strings.HasPrefix(cred.Token, "st=1788177600~exp=1788179600~acl=/*~hmac="),
		"unexpected token layout: %q", cred.Token)
	assert.Equal(t, 2000*time.Second, cred.ExpiresAt.Sub(cred.IssuedAt))
}

func TestIssueIsDeterministicForFixedClock(t *testing.T) {
	issuer, err := edgeauth.NewIssuer("secret", "/*", time.Hour)
	require.NoError(t, err)
	clock := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first := issuer.WithClock(clock).Issue()
	second := issuer.WithClock(clock).Issue()
	assert.Equal(t, first.Token, second.Token)
}

func TestHexSecretIsDecodedBeforeSigning(t *testing.T) {
	hexIssuer, err := edgeauth.NewIssuer("deadbeef", "/*", time.Hour)
	require.NoError(t, err)
	rawIssuer, err := edgeauth.NewIssuer("deadbeeg", "/*", time.Hour)
	require.NoError(t, err)

	clock := fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	hexToken := hexIssuer.WithClock(clock).Issue().Token
	rawToken := rawIssuer.WithClock(clock).Issue().Token
	assert.NotEqual(t, hexToken, rawToken, "hex and raw secrets must sign differently")
}

func TestVerifyRoundTrip(t *testing.T) {
	issuer, err := edgeauth.NewIssuer("secret", "/*", time.Hour)
	require.NoError(t, err)

	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cred := issuer.WithClock(fixedClock(start)).Issue()

	verified, err := issuer.Verify(cred.Token)
	require.NoError(t, err)
	assert.True(t, verified.IssuedAt.Equal(cred.IssuedAt))
	assert.True(t, verified.ExpiresAt.Equal(cred.ExpiresAt))
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer, err := edgeauth.NewIssuer("secret", "/*", time.Hour)
	require.NoError(t, err)

	cred := issuer.Issue()
	tampered := strings.Replace(cred.Token, "acl=/*", "acl=/admin", 1)
	_, err = issuer.Verify(tampered)
	assert.Error(t, err, "tampered token must fail verification")
}

func TestCredentialValidAt(t *testing.T) {
	issuer, err := edgeauth.NewIssuer("secret", "/*", time.Hour)
	require.NoError(t, err)
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cred := issuer.WithClock(fixedClock(start)).Issue()

	assert.True(t, cred.ValidAt(start.Add(30*time.Minute)))
	assert.False(t, cred.ValidAt(start.Add(2*time.Hour)))
	assert.False(t, cred.ValidAt(start.Add(-time.Minute)))
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := edgeauth.NewIssuer("", "/*", time.Hour)
	assert.Error(t, err, "empty secret must be rejected")

	_, err = edgeauth.NewIssuer("secret", "/*", 0)
	assert.Error(t, err, "zero window must be rejected")
}
