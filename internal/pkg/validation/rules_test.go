package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	Matricule string `json:"matricule" validate:"required,matricule"`
	Office    string `json:"office" validate:"required,office"`
}

func TestCustomRules(t *testing.T) {
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("RegisterOn: %v", err)
	}

	tests := []struct {
		in    sample
		field string
	}{
		{sample{"12345.6.12345", "president"}, ""},
		{sample{"12345.6.12345", "Trésorier"}, ""},
		{sample{"1234.6.12345", "president"}, "matricule"},
		{sample{"12345.6.12345", "mayor"}, "office"},
	}
	for _, tt := range tests {
		err := v.Struct(tt.in)
		if tt.field == "" {
			if err != nil {
				t.Errorf("%+v: unexpected error %v", tt.in, err)
			}
			continue
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) != 1 || verrs[0].Field() != tt.field {
			t.Errorf("%+v: error = %v, want one on %s", tt.in, err, tt.field)
		}
	}
}
