package models

import "testing"

func TestParseOffice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Office
	}{
		{"president", OfficePresident},
		{" Vice_President ", OfficeVicePresident},
		{"vice-president", OfficeVicePresident},
		{"secretaire", OfficeSecretary},
		{"Trésorier", OfficeTreasurer},
		{"Commissaire aux comptes", OfficeAuditor},
		{"conseiller", OfficeCouncilor},
	}
	for _, tt := range tests {
		got, err := ParseOffice(tt.in)
		if err != nil {
			t.Fatalf("ParseOffice(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseOffice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseOffice("mayor"); err == nil {
		t.Fatal("expected error for unknown office")
	}
}

func TestAllOfficesOrderAndLabels(t *testing.T) {
	t.Parallel()

	if len(AllOffices) != 6 {
		t.Fatalf("offices = %d, want 6", len(AllOffices))
	}
	for i, o := range AllOffices {
		if o.Index() != i {
			t.Fatalf("%s index = %d, want %d", o, o.Index(), i)
		}
		if o.Label() == string(o) {
			t.Fatalf("%s has no label", o)
		}
	}
	if Office("mayor").Index() != -1 {
		t.Fatal("unknown office should have index -1")
	}
}

func TestValidMatricule(t *testing.T) {
	t.Parallel()

	for _, m := range []string{"12345.6.12345", "20231.1.00042"} {
		if !ValidMatricule(m) {
			t.Fatalf("ValidMatricule(%q) = false", m)
		}
	}
	for _, m := range []string{"", "1234.6.12345", "12345.67.12345", "12345-6-12345", "12345.6.12345 "} {
		if ValidMatricule(m) {
			t.Fatalf("ValidMatricule(%q) = true", m)
		}
	}
}
