package naming_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"xlmerge/internal/naming"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		candidate string
		want      string
	}{
		{name: "free name unchanged", existing: []string{"Report"}, candidate: "Data", want: "Data"},
		{name: "empty workbook", existing: nil, candidate: "Data", want: "Data"},
		{name: "first collision", existing: []string{"Report", "Data"}, candidate: "Data", want: "Data (1)"},
		{name: "skips taken suffixes", existing: []string{"Data", "Data (1)"}, candidate: "Data", want: "Data (2)"},
		{name: "fills gap", existing: []string{"Data", "Data (2)"}, candidate: "Data", want: "Data (1)"},
		{name: "case insensitive", existing: []string{"DATA"}, candidate: "data", want: "data (1)"},
		{name: "report sheet collides", existing: []string{"Report"}, candidate: "Report", want: "Report (1)"},
		{name: "simple folding only", existing: []string{"Straße"}, candidate: "Strasse", want: "Strasse"},
		{name: "non ascii case", existing: []string{"ÜBERSICHT"}, candidate: "übersicht", want: "übersicht (1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := naming.Resolve(tt.existing, tt.candidate); got != tt.want {
				t.Fatalf("Resolve(%v, %q) = %q, want %q", tt.existing, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestResolveRepeatedCopiesStayUnique(t *testing.T) {
	existing := []string{"Report"}
	seen := map[string]struct{}{}
	for i := 0; i < 12; i++ {
		name := naming.Resolve(existing, "Data")
		if _, dup := seen[name]; dup {
			t.Fatalf("name %q returned twice", name)
		}
		seen[name] = struct{}{}
		existing = append(existing, name)
	}
	if _, ok := seen["Data (11)"]; !ok {
		t.Fatalf("expected Data (11) after twelve copies, got %v", existing)
	}
}

func TestResolveShortensLongNames(t *testing.T) {
	long := strings.Repeat("x", naming.MaxSheetNameLength)
	got := naming.Resolve([]string{long}, long)
	if utf8.RuneCountInString(got) > naming.MaxSheetNameLength {
		t.Fatalf("resolved name too long: %q (%d)", got, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, " (1)") {
		t.Fatalf("expected suffix (1), got %q", got)
	}
	again := naming.Resolve([]string{long, got}, long)
	if again == got || !strings.HasSuffix(again, " (2)") {
		t.Fatalf("expected distinct (2) name, got %q", again)
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"Report", "Audit 2024", strings.Repeat("a", naming.MaxSheetNameLength)}
	for _, name := range valid {
		if err := naming.Validate(name); err != nil {
			t.Fatalf("Validate(%q) returned error: %v", name, err)
		}
	}
	invalid := []string{"", "  ", "a/b", "x[1]", "what?", "'quoted'", strings.Repeat("a", naming.MaxSheetNameLength+1)}
	for _, name := range invalid {
		if err := naming.Validate(name); err == nil {
			t.Fatalf("Validate(%q) expected error", name)
		}
	}
}

func TestEqual(t *testing.T) {
	if !naming.Equal("Report", "REPORT") {
		t.Fatal("expected case-insensitive match")
	}
	if naming.Equal("Straße", "Strasse") {
		t.Fatal("expected full case folding not to apply")
	}
	if naming.Equal("Report", "Report (1)") {
		t.Fatal("expected distinct names")
	}
}
