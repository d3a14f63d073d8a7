package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

func TestVerify_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("test-secret", "agrimitra")
	uid := uuid.New()

	tok, err := Sign("test-secret", "agrimitra", uid)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != uid {
		t.Fatalf("expected %s, got %s", uid, got)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewJWTVerifier("right-secret", "agrimitra")
	tok, err := Sign("wrong-secret", "agrimitra", uuid.New())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	v := NewJWTVerifier("test-secret", "agrimitra")
	tok, err := Sign("test-secret", "someone-else", uuid.New())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected verification failure for wrong issuer")
	}
}

func TestFromHeader(t *testing.T) {
	v := NewJWTVerifier("test-secret", "agrimitra")
	uid := uuid.New()
	tok, err := Sign("test-secret", "agrimitra", uid)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name   string
		header string
		wantOK bool
	}{
		{"valid", "Bearer " + tok, true},
		{"missing", "", false},
		{"no scheme", tok, false},
		{"wrong scheme", "Basic " + tok, false},
		{"garbage token", "Bearer not-a-jwt", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, aerr := FromHeader(v, tc.header)
			if tc.wantOK {
				if aerr != nil {
					t.Fatalf("expected success, got %v", aerr)
				}
				if got != uid {
					t.Fatalf("expected %s, got %s", uid, got)
				}
				return
			}
			if aerr == nil {
				t.Fatal("expected an error")
			}
			if aerr.Kind != apperr.Unauthorized {
				t.Fatalf("expected Unauthorized, got %s", aerr.Kind)
			}
		})
	}
}
