package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"5.٩٩", 0, false},
		{"1.٣", 0, false},
		{"١٢", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyStringRoundTrip(t *testing.T) {
	for _, cents := range []int64{1, 9, 10, 99, 100, 1250, 123456} {
		m := Money{Cents: cents}
		back, err := ParseAmount(m.String())
		if err != nil || back != m {
			t.Fatalf("%d -> %q -> %v (err=%v)", cents, m.String(), back, err)
		}
	}
	if got := (Money{Cents: -307}).String(); got != "-3.07" {
		t.Fatalf("negative format: %q", got)
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := map[float64]int64{
		0:      0,
		0.1:    10,
		12.345: 1235,
		19.99:  1999,
		0.3:    30,
	}
	for in, want := range cases {
		if got := MoneyFromFloat(in).Cents; got != want {
			t.Fatalf("MoneyFromFloat(%v) = %d, want %d", in, got, want)
		}
	}
}
