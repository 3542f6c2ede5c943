package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		page, size         string
		wantPage, wantSize int
	}{
		{"", "", 1, 20},
		{"0", "-3", 1, 20},
		{"3", "50", 3, 50},
		{"2", "500", 2, 100},
		{"x", "y", 1, 20},
	}
	for _, tc := range cases {
		p, s := Paginate(tc.page, tc.size, 20, 100)
		if p != tc.wantPage || s != tc.wantSize {
			t.Fatalf("Paginate(%q,%q) = %d,%d; want %d,%d", tc.page, tc.size, p, s, tc.wantPage, tc.wantSize)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, ok := ParseID(" 123456789012345 "); !ok || id != 123456789012345 {
		t.Fatalf("got %d,%v", id, ok)
	}
	for _, bad := range []string{"", "0", "-4", "abc", "1.5"} {
		if _, ok := ParseID(bad); ok {
			t.Fatalf("ParseID(%q) accepted", bad)
		}
	}
}
