package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// ErrInvalidSignature is returned for every authentication failure.
var ErrInvalidSignature = errors.New("invalid signature")

// Reasons reported alongside ErrInvalidSignature.
const (
	ReasonMissingSignature = "missing_signature"
	ReasonMalformed        = "malformed_signature"
	ReasonBadSignature     = "bad_signature"
	ReasonMissingSecret    = "missing_secret"
	ReasonBadToken         = "bad_token"
)

// VerifySignature checks a "sha256=<hex>" header against the HMAC-SHA256 of
// the exact raw body. Malformed headers are rejected before any MAC work.
func VerifySignature(secret, header string, body []byte) error {
	if secret == "" {
		return reject(ReasonMissingSecret)
	}
	if header == "" || !strings.HasPrefix(header, signaturePrefix) {
		return reject(ReasonMissingSignature)
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(provided) != sha256.Size {
		return reject(ReasonMalformed)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	if subtle.ConstantTimeCompare(mac.Sum(nil), provided) != 1 {
		return reject(ReasonBadSignature)
	}
	return nil
}

// Sign returns the header value VerifySignature accepts for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// ValidateToken compares a bearer or API token to the configured one.
// An unset expected token never authenticates.
func ValidateToken(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// Credentials holds whatever the caller presented.
type Credentials struct {
	Token     string
	Signature string
}

// Authenticator accepts either a matching token or a valid body signature.
type Authenticator struct {
	Token      string
	HMACSecret string
}

// Authenticate succeeds when either credential path succeeds.
func (a Authenticator) Authenticate(creds Credentials, body []byte) error {
	if ValidateToken(creds.Token, a.Token) {
		return nil
	}
	if creds.Signature != "" && a.HMACSecret != "" {
		sig := creds.Signature
		// X-Signature may omit the algorithm prefix.
		if !strings.Contains(sig, "=") {
			sig = signaturePrefix + sig
		}
		return VerifySignature(a.HMACSecret, sig, body)
	}
	if creds.Token != "" {
		return reject(ReasonBadToken)
	}
	return reject(ReasonMissingSignature)
}

func reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSignature, reason)
}
