// Package config translates CLI flag values into the typed configuration of
// the reconciliation core.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"hotcake-cash-recon/internal/models"
	"hotcake-cash-recon/internal/recon"
	"hotcake-cash-recon/pkg/errors"
)

// BuildPeriod builds the inclusive reconciliation window from the start and
// end flag values. Date-only values expand to the full day: the start to
// 00:00:00 and the end to 23:59:59.
func BuildPeriod(start, end string) (models.Period, error) {
	startTime, err := parseBound(start, "start", false)
	if err != nil {
		return models.Period{}, err
	}
	endTime, err := parseBound(end, "end", true)
	if err != nil {
		return models.Period{}, err
	}

	p := models.Period{Start: startTime, End: endTime}
	if err := p.Validate(); err != nil {
		return models.Period{}, errors.ValidationError(errors.CodeInvalidPeriod, "period", p.String(), err)
	}
	return p, nil
}

func parseBound(value, name string, endOfDay bool) (time.Time, error) {
	if t, ok := models.ParseDateTime(value); ok {
		return t, nil
	}
	if t, ok := models.ParseDate(value); ok {
		if endOfDay {
			t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		}
		return t, nil
	}
	return time.Time{}, errors.ValidationError(errors.CodeInvalidDate, name, value,
		fmt.Errorf("unrecognized date %q", value)).
		WithSuggestion("use YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\"")
}

// BuildReconOptions builds validated reconciliation options from flag values.
func BuildReconOptions(topupMode string, toleranceMinutes int) (recon.Options, error) {
	mode, err := models.ParseTopupMode(topupMode)
	if err != nil {
		return recon.Options{}, errors.ConfigurationError(errors.CodeInvalidConfig, "topup-mode", topupMode, err).
			WithSuggestion("use settlement_time or exclude")
	}

	opts := recon.Options{
		TopupMode:        mode,
		ToleranceMinutes: toleranceMinutes,
	}
	if err := opts.Validate(); err != nil {
		return recon.Options{}, err
	}
	return opts, nil
}

// DefaultOutputPath names the review workbook after the store and period
// when no --out flag is given.
func DefaultOutputPath(store string, period models.Period) string {
	name := fmt.Sprintf("cash_recon_%s_%s_%s.xlsx",
		store,
		period.Start.Format("20060102"),
		period.End.Format("20060102"))
	return filepath.Join(".", name)
}
