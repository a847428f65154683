package naming

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Doe, Jane", "Doe.Jane"},
		{"Jane Doe", "Doe.Jane"},
		{"Madonna", "Madonna"},
		{"", "Unknown.Unknown"},
		{"   ", "Unknown.Unknown"},
		{"Jane van Doe", "Doe.Jane"},
		{"O'Brien, Mary-Kate", "OBrien.MaryKate"},
		{"José Álvarez", "Alvarez.Jose"},
		{"!!!", "Unknown.Unknown"},
		{"Doe,", "Doe.Unknown"},
		{", Jane", "Unknown.Jane"},
		{"Doe, Jane, Jr.", "Doe.JaneJr"},
		{"李 小龙", "Unknown.Unknown"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
