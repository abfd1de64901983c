package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"action":"opened","number":1}`)
	header := Sign("s3cret", body)

	if err := VerifySignature("s3cret", header, body); err != nil {
		t.Fatalf("Expected signature to verify, got: %v", err)
	}
}

func TestVerifySignature_AnySingleByteMutationFails(t *testing.T) {
	body := []byte(`{"zen":"Keep it logically awesome."}`)
	header := Sign("s3cret", body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01

		err := VerifySignature("s3cret", header, mutated)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("Expected mutation at byte %d to fail, got: %v", i, err)
		}
	}
}

func TestVerifySignature_Rejections(t *testing.T) {
	body := []byte("payload")
	valid := Sign("s3cret", body)

	tests := []struct {
		name   string
		secret string
		header string
		reason string
	}{
		{"missing header", "s3cret", "", ReasonMissingSignature},
		{"missing prefix", "s3cret", strings.TrimPrefix(valid, "sha256="), ReasonMissingSignature},
		{"sha1 prefix", "s3cret", "sha1=abcdef", ReasonMissingSignature},
		{"non hex", "s3cret", "sha256=zz", ReasonMalformed},
		{"short digest", "s3cret", "sha256=abcd", ReasonMalformed},
		{"wrong secret", "other", valid, ReasonBadSignature},
		{"no secret configured", "", valid, ReasonMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.header, body)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("Expected ErrInvalidSignature, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("Expected reason %q in %q", tt.reason, err.Error())
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	if !ValidateToken("abc", "abc") {
		t.Error("Expected matching token to validate")
	}
	if ValidateToken("abc", "abd") {
		t.Error("Expected mismatched token to fail")
	}
	if ValidateToken("", "") {
		t.Error("Expected empty tokens to fail")
	}
	if ValidateToken("abc", "") {
		t.Error("Expected unset expected token to fail")
	}
}

func TestAuthenticator_EitherPath(t *testing.T) {
	body := []byte(`{"source_name":"blog"}`)
	a := Authenticator{Token: "tok", HMACSecret: "sec"}

	if err := a.Authenticate(Credentials{Token: "tok"}, body); err != nil {
		t.Errorf("Expected token path to succeed, got: %v", err)
	}
	if err := a.Authenticate(Credentials{Signature: Sign("sec", body)}, body); err != nil {
		t.Errorf("Expected signature path to succeed, got: %v", err)
	}
	if err := a.Authenticate(Credentials{Token: "wrong", Signature: Sign("sec", body)}, body); err != nil {
		t.Errorf("Expected signature to rescue a wrong token, got: %v", err)
	}
	bare := strings.TrimPrefix(Sign("sec", body), "sha256=")
	if err := a.Authenticate(Credentials{Signature: bare}, body); err != nil {
		t.Errorf("Expected unprefixed signature to succeed, got: %v", err)
	}
	if err := a.Authenticate(Credentials{Token: "wrong"}, body); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Expected wrong token to fail, got: %v", err)
	}
	if err := a.Authenticate(Credentials{}, body); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Expected missing credentials to fail, got: %v", err)
	}
}
