package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"500.00", "500", true},
		{"1", "1", true},
		{"1.5", "1.5", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"0", "", false},
		{"0.00", "", false},
		{"1.234", "", false},
		{"1,23", "", false},
		{"-1", "", false},
		{".5", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParsePrice(t *testing.T) {
	if d, err := ParsePrice("12,5"); err != nil || d.StringFixed(2) != "12.50" {
		t.Fatalf("unexpected %s %v", d, err)
	}
	for _, bad := range []string{"", "0", "-3", "+3", "x"} {
		if _, err := ParsePrice(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	d, _ := ParsePrice("12.3")
	if got := FormatRupees(d); got != "₹12.30" {
		t.Fatalf("got %q", got)
	}
	if got := FormatRupees(d.Neg()); got != "-₹12.30" {
		t.Fatalf("got %q", got)
	}
}
