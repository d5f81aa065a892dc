package utils

import (
	"testing"
	"time"
)

func TestTruncateToHour(t *testing.T) {
	in := time.Date(2024, 3, 15, 14, 37, 52, 123456789, time.UTC)
	got := TruncateToHour(in)
	want := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TruncateToHour(%v) = %v, want %v", in, got, want)
	}
}

func TestMonthRange(t *testing.T) {
	testCases := []struct {
		name      string
		in        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "月中",
			in:        time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "十二月跨年",
			in:        time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			wantStart: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "閏年二月",
			in:        time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := MonthRange(tc.in)
			if !start.Equal(tc.wantStart) {
				t.Errorf("MonthRange(%v) start = %v, want %v", tc.in, start, tc.wantStart)
			}
			if !end.Equal(tc.wantEnd) {
				t.Errorf("MonthRange(%v) end = %v, want %v", tc.in, end, tc.wantEnd)
			}
		})
	}
}
