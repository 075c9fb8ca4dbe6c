package validation

import (
	"strings"
	"testing"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Happy paths
		{"zone", "public", false},
		{"ipv4", "10.0.0.5", false},
		{"hostname-like", "trusted.zone1", false},

		// Sad paths
		{"empty", "", true},
		{"ipv6 colon", "fe80::1", true},
		{"cidr slash", "10.0.0.0/8", true},
		{"space", "10.0.0.5 10.0.0.6", true},
		{"semicolon injection", "public;reboot", true},
		{"flag injection", "--panic-on", true},
		{"pipe injection", "public|cat", true},
		{"dollar sign", "$ZONE", true},
		{"backtick", "`id`", true},
		{"newline", "public\n", true},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToken("source", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateToken(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateToken_RejectsMetacharacters(t *testing.T) {
	for _, c := range []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r", "\t", " ", "-", "*", "{", "#"} {
		value := "public" + c + "x"
		err := ValidateToken("zone", value)
		if err == nil || !strings.Contains(err.Error(), "must be alphanumeric") {
			t.Errorf("ValidateToken(%q) = %v, want alphanumeric rejection", value, err)
		}
	}
}

func TestValidateZoneAndSource(t *testing.T) {
	if err := ValidateZone("public"); err != nil {
		t.Errorf("ValidateZone(public) = %v", err)
	}
	if err := ValidateZone(""); err == nil || !strings.Contains(err.Error(), "zone") {
		t.Errorf("ValidateZone(\"\") error should mention zone, got %v", err)
	}
	if err := ValidateSource("a&b"); err == nil || !strings.Contains(err.Error(), "source") {
		t.Errorf("ValidateSource(a&b) error should mention source, got %v", err)
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"/hooks", false},
		{"/hooks/firegate", false},
		{"hooks", true},
		{"/hooks/", true},
		{"/ho oks", true},
	}

	for _, tt := range tests {
		err := ValidateEndpoint(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidatePortNumber(t *testing.T) {
	for _, p := range []int{1, 81, 65535} {
		if err := ValidatePortNumber(p); err != nil {
			t.Errorf("ValidatePortNumber(%d) = %v", p, err)
		}
	}
	for _, p := range []int{0, -1, 65536} {
		if err := ValidatePortNumber(p); err == nil {
			t.Errorf("ValidatePortNumber(%d) should fail", p)
		}
	}
}
