// Package edgeauth issues time-windowed HMAC access credentials for the
// upstream catalog API.
//
// A credential is a tilde-delimited string of the form
// st=<start>~exp=<expiry>~acl=<acl>~hmac=<signature> where the signature is
// an HMAC-SHA256 over the preceding fields. Hex-encoded signing secrets are
// decoded before use; anything that is not valid hex is signed as raw bytes.
package edgeauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Issuer signs access credentials for a fixed ACL and validity window.
type Issuer struct {
	key    []byte
	acl    string
	window time.Duration
	now    func() time.Time
}

// Credential is a signed token together with its validity bounds.
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewIssuer builds an Issuer from the shared signing secret. The window is
// the credential lifetime; it must be positive.
func NewIssuer(secret, acl string, window time.Duration) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("edgeauth: signing secret must not be empty")
	}
	if window <= 0 {
		return nil, fmt.Errorf("edgeauth: validity window must be positive, got %s", window)
	}
	if strings.TrimSpace(acl) == "" {
		acl = "/*"
	}

	key, err := hex.DecodeString(secret)
	if err != nil {
		key = []byte(secret)
	}

	return &Issuer{
		key:    key,
		acl:    acl,
		window: window,
		now:    time.Now,
	}, nil
}

// WithClock overrides the issuer's time source. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	clone := *i
	clone.now = now
	return &clone
}

// Issue signs a new credential starting at the current time.
func (i *Issuer) Issue() Credential {
	issued := i.now().UTC()
	expires := issued.Add(i.window)

	payload := fmt.Sprintf("st=%d~exp=%d~acl=%s", issued.Unix(), expires.Unix(), i.acl)

	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	return Credential{
		Token:     payload + "~hmac=" + signature,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}
}

// ValidAt reports whether the credential covers the given instant.
func (c Credential) ValidAt(at time.Time) bool {
	if c.Token == "" {
		return false
	}
	return !at.Before(c.IssuedAt) && at.Before(c.ExpiresAt)
}

// Verify checks a token's signature against the issuer's key and reports the
// embedded validity window. Used by tests and the token command to confirm a
// credential before sending it upstream.
func (i *Issuer) Verify(token string) (Credential, error) {
	idx := strings.LastIndex(token, "~hmac=")
	if idx < 0 {
		return Credential{}, errors.New("edgeauth: token missing signature field")
	}
	payload := token[:idx]
	signature := token[idx+len("~hmac="):]

	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Credential{}, errors.New("edgeauth: signature mismatch")
	}

	var start, expiry int64
	var acl string
	if _, err := fmt.Sscanf(payload, "st=%d~exp=%d~acl=%s", &start, &expiry, &acl); err != nil {
		return Credential{}, fmt.Errorf("edgeauth: malformed token payload: %w", err)
	}

	return Credential{
		Token:     token,
		IssuedAt:  time.Unix(start, 0).UTC(),
		ExpiresAt: time.Unix(expiry, 0).UTC(),
	}, nil
}
