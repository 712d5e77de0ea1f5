package helpers

import (
	"testing"
	"time"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		page, size    int
		offset, limit int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 0, 0, DefaultPageSize},
		{2, MaxPageSize + 1, DefaultPageSize, DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := CalculateOffsetLimit(tt.page, tt.size)
		if offset != tt.offset || limit != tt.limit {
			t.Errorf("CalculateOffsetLimit(%d, %d) = %d, %d, want %d, %d", tt.page, tt.size, offset, limit, tt.offset, tt.limit)
		}
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(45, 5, 10)
	if info.TotalPages != 5 || info.CurrentPage != 5 {
		t.Fatalf("info = %+v", info)
	}
	info = NewPaginationInfo(0, 1, 10)
	if info.TotalPages != 1 {
		t.Fatalf("empty info = %+v", info)
	}
}

func TestParseTimeParam(t *testing.T) {
	kin := time.FixedZone("WAT", 3600)

	got, err := ParseTimeParam("", kin, false)
	if err != nil || got != nil {
		t.Fatalf("empty = %v, %v", got, err)
	}

	got, err = ParseTimeParam("2024-03-14", kin, true)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 14, 23, 59, 59, 999999999, kin); !got.Equal(want) {
		t.Fatalf("end of day = %v, want %v", got, want)
	}

	got, err = ParseTimeParam("2024-03-14T08:00:00Z", kin, true)
	if err != nil || got.Hour() != 8 {
		t.Fatalf("rfc3339 = %v, %v", got, err)
	}

	if _, err := ParseTimeParam("14/03/2024", kin, false); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
