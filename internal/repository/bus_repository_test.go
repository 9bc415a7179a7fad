package repository

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCombineDeparture(t *testing.T) {
	cases := []struct {
		date, clock string
		want        string
		wantErr     bool
	}{
		{"2026-09-14", "22:30", "2026-09-14T22:30:00Z", false},
		{"2026-01-01", "00:00", "2026-01-01T00:00:00Z", false},
		{"14-09-2026", "22:30", "", true},
		{"2026-09-14", "10:30 PM", "", true},
		{"", "", "", true},
	}
	for _, tc := range cases {
		got, err := CombineDeparture(tc.date, tc.clock)
		if tc.wantErr {
			if err == nil {
				t.Errorf("CombineDeparture(%q, %q): want error, got %v", tc.date, tc.clock, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("CombineDeparture(%q, %q): %v", tc.date, tc.clock, err)
			continue
		}
		if got.Format(time.RFC3339) != tc.want {
			t.Errorf("CombineDeparture(%q, %q) = %s, want %s", tc.date, tc.clock, got.Format(time.RFC3339), tc.want)
		}
	}
}

// A trip departing 5 hours from now is cancellable; at 3 hours the refusal
// must report the computed gap. Exactly at the threshold the cancellation is
// refused too: the departure has to be strictly further out.
func TestCheckCancelWindow(t *testing.T) {
	now := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	const minHours = 4

	if err := CheckCancelWindow(now.Add(5*time.Hour), now, minHours); err != nil {
		t.Fatalf("5h before departure must be cancellable: %v", err)
	}

	err := CheckCancelWindow(now.Add(3*time.Hour), now, minHours)
	var werr *CancellationWindowError
	if !errors.As(err, &werr) {
		t.Fatalf("3h before departure: want CancellationWindowError, got %v", err)
	}
	if math.Abs(werr.HoursLeft-3) > 1e-9 || werr.MinHours != minHours {
		t.Fatalf("refusal must carry the computed gap: %+v", werr)
	}

	if err := CheckCancelWindow(now.Add(4*time.Hour), now, minHours); err == nil {
		t.Fatal("departure exactly at the threshold must be refused")
	}

	if err := CheckCancelWindow(now.Add(-30*time.Minute), now, minHours); err == nil {
		t.Fatal("a departed trip must not be cancellable")
	}
}
