package store

import "testing"

func TestClampPage(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, 20, 0},
		{"negative limit", -5, 0, 20, 0},
		{"capped limit", 500, 0, 100, 0},
		{"negative offset", 50, -10, 50, 0},
		{"passthrough", 25, 75, 25, 75},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset := clampPage(tc.limit, tc.offset)
			if limit != tc.wantLimit || offset != tc.wantOffset {
				t.Fatalf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
					tc.limit, tc.offset, limit, offset, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}
