package config

import (
	"testing"
	"time"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/pkg/errors"
)

func TestBuildPeriod(t *testing.T) {
	p, err := BuildPeriod("2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("BuildPeriod() failed: %v", err)
	}
	if !p.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected start %s", p.Start)
	}
	if !p.End.Equal(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("Date-only end must expand to end of day, got %s", p.End)
	}
}

func TestBuildPeriod_DateTimeBounds(t *testing.T) {
	p, err := BuildPeriod("2026/01/01 09:00", "2026/01/01 18:30")
	if err != nil {
		t.Fatalf("BuildPeriod() failed: %v", err)
	}
	if !p.End.Equal(time.Date(2026, 1, 1, 18, 30, 0, 0, time.UTC)) {
		t.Errorf("Explicit time must be kept verbatim, got %s", p.End)
	}
}

func TestBuildPeriod_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		code       errors.ErrorCode
	}{
		{"garbage start", "soon", "2026-01-31", errors.CodeInvalidDate},
		{"garbage end", "2026-01-01", "later", errors.CodeInvalidDate},
		{"inverted", "2026-02-01", "2026-01-01", errors.CodeInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPeriod(tt.start, tt.end)
			if err == nil {
				t.Fatal("Expected an error")
			}
			re, ok := errors.AsReconError(err)
			if !ok {
				t.Fatalf("Expected a ReconError, got %T", err)
			}
			if re.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, re.Code)
			}
		})
	}
}

func TestBuildReconOptions(t *testing.T) {
	opts, err := BuildReconOptions("exclude", 15)
	if err != nil {
		t.Fatalf("BuildReconOptions() failed: %v", err)
	}
	if opts.TopupMode != models.TopupExclude || opts.ToleranceMinutes != 15 {
		t.Errorf("Unexpected options: %+v", opts)
	}

	if _, err := BuildReconOptions("magic", 15); err == nil {
		t.Error("Expected an error for an unknown topup mode")
	}
	if _, err := BuildReconOptions("exclude", 999); err == nil {
		t.Error("Expected an error for an out-of-range tolerance")
	}
}

func TestDefaultOutputPath(t *testing.T) {
	p := models.Period{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
	}

	got := DefaultOutputPath("中壢三光店", p)
	want := "cash_recon_中壢三光店_20260101_20260131.xlsx"
	if got != want {
		t.Errorf("DefaultOutputPath() = %q, expected %q", got, want)
	}
}
