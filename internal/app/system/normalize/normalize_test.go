package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Milk", "Milk"},
		{"  Greek Yogurt  ", "Greek Yogurt"},
		{"Greek   \t Yogurt", "Greek Yogurt"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"}, // Name preserves case
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAuthMethod(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"password", "password"},
		{"  Google  ", "google"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := AuthMethod(tt.input); got != tt.want {
				t.Errorf("AuthMethod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnit(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"g", "g"},
		{" Pcs. ", "pcs"},
		{"ML", "ml"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Unit(tt.input); got != tt.want {
				t.Errorf("Unit(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBarcode(t *testing.T) {
	if got := Barcode(" 4901-2345 6789 "); got != "490123456789" {
		t.Errorf("Barcode = %q, want %q", got, "490123456789")
	}
	if got := Barcode("abc"); got != "" {
		t.Errorf("Barcode(abc) = %q, want empty", got)
	}
}
