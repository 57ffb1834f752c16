package model

import (
	"errors"
	"testing"
	"time"
)

func series(closes ...float64) PriceSeries {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	s := make(PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return s
}

func TestValidate_OK(t *testing.T) {
	if err := series(10, 11, 12).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (PriceSeries{}).Validate(); err != nil {
		t.Errorf("empty series should validate: %v", err)
	}
}

func TestValidate_NonPositivePrice(t *testing.T) {
	s := series(10, 11, 12)
	s[1].Low = 0

	var de *DataError
	if err := s.Validate(); !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	} else if de.Bar != 1 {
		t.Errorf("expected bar index 1, got %d", de.Bar)
	}
}

func TestValidate_DuplicateDate(t *testing.T) {
	s := series(10, 11)
	s[1].Date = s[0].Date

	var de *DataError
	if err := s.Validate(); !errors.As(err, &de) {
		t.Fatalf("expected DataError for duplicate date, got %v", err)
	}
}

func TestLastClose(t *testing.T) {
	if got := series(10, 11, 12).LastClose(); got != 12 {
		t.Errorf("expected 12, got %g", got)
	}
	if got := (PriceSeries{}).LastClose(); got != 0 {
		t.Errorf("expected 0 for empty series, got %g", got)
	}
}
