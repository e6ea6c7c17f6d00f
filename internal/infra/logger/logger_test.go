package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"carol@example.com", "c***@example.com"},
		{"b@example.com", "b***@example.com"},
		{"not-an-email", "***"},
		{"@example.com", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+491701234567", "***4567"},
		{"1234", "***"},
		{"", "***"},
	}

	for _, tc := range cases {
		if got := MaskPhone(tc.in); got != tc.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"carol.danvers", "ca***rs"},
		{"bob", "***"},
		{"", "***"},
	}

	for _, tc := range cases {
		if got := MaskString(tc.in); got != tc.want {
			t.Errorf("MaskString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
