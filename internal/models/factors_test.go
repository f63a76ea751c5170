package models

import (
	"encoding/json"
	"testing"
)

func TestFactorKeyNames(t *testing.T) {
	for _, f := range AllFactors {
		if !f.Valid() {
			t.Errorf("%d not valid", int(f))
		}
		if f.Label() == "" {
			t.Errorf("%s has no label", f)
		}
		got, err := ParseFactorKey(f.String())
		if err != nil {
			t.Fatalf("ParseFactorKey(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFactorKey(%q) = %v, want %v", f.String(), got, f)
		}
	}
}

func TestFactorKeyRejectsUnknown(t *testing.T) {
	if _, err := ParseFactorKey("windSpeed"); err == nil {
		t.Error("expected error for unknown factor name")
	}
	if FactorKey(99).Valid() {
		t.Error("FactorKey(99) should not be valid")
	}
	if _, err := FactorKey(99).MarshalText(); err == nil {
		t.Error("expected error marshalling unknown factor")
	}
}

func TestFactorKeyJSONMapKeys(t *testing.T) {
	in := map[FactorKey]float64{FactorWind: 3.5, FactorMoon: -1}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"moon":-1,"wind":3.5}` {
		t.Errorf("json = %s", data)
	}

	var out map[FactorKey]float64
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[FactorWind] != 3.5 || out[FactorMoon] != -1 {
		t.Errorf("round trip = %v", out)
	}

	if err := json.Unmarshal([]byte(`{"tide":1}`), &out); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		score float64
		want  RatingLabel
	}{
		{0, RatingPoor},
		{29.9, RatingPoor},
		{30, RatingFair},
		{49, RatingFair},
		{50, RatingGood},
		{69, RatingGood},
		{70, RatingGreat},
		{84, RatingGreat},
		{85, RatingEpic},
		{100, RatingEpic},
	}
	for _, tt := range tests {
		if got := RatingFor(tt.score); got != tt.want {
			t.Errorf("RatingFor(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestParseUnits(t *testing.T) {
	tests := map[string]UnitSystem{
		"metric":   UnitsMetric,
		"imperial": UnitsImperial,
		"":         UnitsImperial,
		"kelvin":   UnitsImperial,
	}
	for in, want := range tests {
		if got := ParseUnits(in); got != want {
			t.Errorf("ParseUnits(%q) = %q, want %q", in, got, want)
		}
	}
}
