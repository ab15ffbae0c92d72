package pricing

import "testing"

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		// Exact canonical labels.
		{"Mint", "Mint", true},
		{"Near Mint", "Near Mint", true},
		{"Very Good Plus", "Very Good Plus", true},
		{"Very Good", "Very Good", true},
		{"Good Plus", "Good Plus", true},
		{"Good", "Good", true},
		{"Fair", "Fair", true},
		{"Poor", "Poor", true},
		// Case-insensitive labels.
		{"near mint", "Near Mint", true},
		{"VERY GOOD PLUS", "Very Good Plus", true},
		// Short codes.
		{"M", "Mint", true},
		{"NM", "Near Mint", true},
		{"M-", "Near Mint", true},
		{"VG+", "Very Good Plus", true},
		{"VG", "Very Good", true},
		{"G+", "Good Plus", true},
		{"G", "Good", true},
		{"F", "Fair", true},
		{"P", "Poor", true},
		{"vg+", "Very Good Plus", true},
		// Parenthetical forms as Discogs renders them.
		{"Near Mint (NM or M-)", "Near Mint", true},
		{"Very Good Plus (VG+)", "Very Good Plus", true},
		{"Mint (M)", "Mint", true},
		{"Good (G)", "Good", true},
		// Surrounding whitespace.
		{"  VG+  ", "Very Good Plus", true},
		// Unrecognized strings.
		{"", "", false},
		{"Sealed", "", false},
		{"Excellent", "", false},
		{"VG++", "", false},
		{"8/10", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeCondition(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeCondition(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeCondition(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
