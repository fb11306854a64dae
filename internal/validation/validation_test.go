package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCustomerID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"email", "a@b.com", false},
		{"source id", "cust_0123", false},
		{"empty", "", true},
		{"whitespace", "a b@c.com", true},
		{"too long", strings.Repeat("a", 255), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomerID(tt.id, "email")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			var vErr *ValidationError
			if err != nil && (!errors.As(err, &vErr) || vErr.Field != "email") {
				t.Errorf("Expected ValidationError on email, got %v", err)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	for _, c := range []string{"#fcba03", "#FFF"} {
		if err := ValidateHexColor(c, "color"); err != nil {
			t.Errorf("Expected %s to be valid, got %v", c, err)
		}
	}
	for _, c := range []string{"", "fcba03", "#12345", "yellow"} {
		if err := ValidateHexColor(c, "color"); err == nil {
			t.Errorf("Expected %q to be rejected", c)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  a@b.com\x00 "); got != "a@b.com" {
		t.Errorf("Expected control characters and padding removed, got %q", got)
	}
}
