package idempotency

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid uuid-style key", "5f2c1d3e-checkout-retry-01", nil},
		{"max length key", strings.Repeat("k", MaxKeyLength), nil},
		{"empty key", "", ErrInvalidKey},
		{"over max length", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestHashBody(t *testing.T) {
	body := `{"checkout_url":"https://checkout.stripe.com/c/pay/cs_test_1"}`
	first := HashBody(body)
	if first != HashBody(body) {
		t.Error("hash is not deterministic")
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}
	if first == HashBody(body+" ") {
		t.Error("distinct bodies must not collide on a trailing change")
	}
}
