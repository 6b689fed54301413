package notification

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"comment", "a<!-- hidden -->b", "ab"},
		{"multiline comment", "a<!--\nhidden\n-->b", "ab"},
		{"two comments", "<!-- x -->a<!-- y -->", "a"},
		{"sup once", "<sup>small</sup> and <sup>more</sup>", "-# small and <sup>more</sup>"},
		{"note once", "[!NOTE] one [!NOTE] two", " one [!NOTE] two"},
		{"empty", "", "No description"},
		{"only comment", "<!-- CURSOR_SUMMARY -->", "No description"},
		{"whitespace after strip", "  <!-- x -->\n", "No description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in, "No description"); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 10); got != "héllo" {
		t.Errorf("short input changed: %q", got)
	}
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Errorf("got %q", got)
	}
}
