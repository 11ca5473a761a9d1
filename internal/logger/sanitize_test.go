package logger

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{name: "empty", input: "", maxLength: 10, want: ""},
		{name: "control characters removed", input: "a\x00b\x1bc", maxLength: 10, want: "abc"},
		{name: "newline kept", input: "a\nb", maxLength: 10, want: "a\nb"},
		{name: "truncated", input: "abcdefghijkl", maxLength: 5, want: "abcde..."},
		{name: "invalid utf8 dropped", input: "ok\xff", maxLength: 10, want: "ok"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.want)
			}
		})
	}
}

func TestSanitizeBody(t *testing.T) {
	t.Parallel()

	if got := SanitizeBody(nil); got != "" {
		t.Errorf("Expected empty string for nil body, got %q", got)
	}
	if got := SanitizeBody([]byte{0xff, 0xd8, 0xff, 0xe0}); got != "<binary 4 bytes>" {
		t.Errorf("Expected binary summary, got %q", got)
	}
	long := strings.Repeat("x", MaxBodyLength+10)
	if got := SanitizeBody([]byte(long)); len(got) != MaxBodyLength+3 {
		t.Errorf("Expected truncated body of %d chars, got %d", MaxBodyLength+3, len(got))
	}
}

func TestSanitizeParams(t *testing.T) {
	t.Parallel()

	values := url.Values{}
	values.Set("sort", "expenseDate,desc")
	values.Set("page", "0")
	values.Set("size", "50")

	want := "page=0&size=50&sort=expenseDate,desc"
	if got := SanitizeParams(values); got != want {
		t.Errorf("SanitizeParams() = %q, want %q", got, want)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("Expected empty string for nil error, got %q", got)
	}
	if got := SanitizeError(errors.New("boom\x07")); got != "boom" {
		t.Errorf("Expected control character removed, got %q", got)
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	if got := MaskToken("short"); got != "***" {
		t.Errorf("Expected short token fully masked, got %q", got)
	}
	if got := MaskToken("eyJhbGciOiJIUzI1NiJ9.payload.sig"); got != "eyJhbGciOiJI..." {
		t.Errorf("Unexpected mask: %q", got)
	}
}
