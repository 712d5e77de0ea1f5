package dto

import (
	"testing"

	"github.com/yigit/univote/internal/app/models"
)

func TestToSelections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      map[string]int64
		want    models.Selections
		wantErr bool
	}{
		{"blank", map[string]int64{}, models.Selections{}, false},
		{"missing", nil, models.Selections{}, false},
		{"labels and legacy keys", map[string]int64{"Président": 1, "tresorier": 4},
			models.Selections{models.OfficePresident: 1, models.OfficeTreasurer: 4}, false},
		{"unknown office", map[string]int64{"mayor": 1}, nil, true},
		{"legacy alias of same office", map[string]int64{"vice_president": 2, "vice-president": 3}, nil, true},
		{"label of same office", map[string]int64{"president": 1, "Président": 5}, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CastBallotRequest{Selections: tt.in}.ToSelections()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ToSelections(%v) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToSelections(%v): %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ToSelections(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for office, id := range tt.want {
				if got[office] != id {
					t.Fatalf("ToSelections(%v)[%s] = %d, want %d", tt.in, office, got[office], id)
				}
			}
		})
	}
}
