package dnc

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 867-5309": "15558675309",
		"555.867.5309":      "5558675309",
		"5558675309":        "5558675309",
		"":                  "",
	}

	for input, want := range cases {
		if got := normalizePhone(input); got != want {
			t.Errorf("normalizePhone(%q) = %q, want %q", input, got, want)
		}
	}
}
