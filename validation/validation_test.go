package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "   ", v)
	NonNegativeFloat("amount", -1, v)
	OneOf("status", "Annulé", []string{"Devis", "En cours"}, v)
	Date("invoice_date", "14/10/2026", v)
	Date("empty_date", "", v)

	want := map[string]string{
		"name":         "required",
		"amount":       "must_not_be_negative",
		"status":       "invalid_choice",
		"invoice_date": "invalid_date",
	}
	if len(v) != len(want) {
		t.Fatalf("expected %d violations got %v", len(want), v)
	}
	for field, code := range want {
		if v[field] != code {
			t.Errorf("%s: expected %s got %q", field, code, v[field])
		}
	}
	if !strings.HasPrefix(v.Error(), "validation failed: amount: must_not_be_negative") {
		t.Fatalf("unexpected error text %q", v.Error())
	}
}

func TestEmptyViolations(t *testing.T) {
	v := Violations{}
	Required("name", "Dupont", v)
	PositiveFloat("qty", 2, v)
	RangeFloat("rate", 0.2, 0, 1, v)
	if !v.Empty() {
		t.Fatalf("expected no violations got %v", v)
	}
}

func TestFloatValidatorsRejectNonFinite(t *testing.T) {
	for _, val := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		v := Violations{}
		RangeFloat("latitude", val, -90, 90, v)
		if v["latitude"] != "out_of_range" {
			t.Errorf("RangeFloat(%v): expected out_of_range got %q", val, v["latitude"])
		}
	}
	v := Violations{}
	NonNegativeFloat("amount", math.NaN(), v)
	PositiveFloat("qty", math.NaN(), v)
	if v["amount"] != "must_not_be_negative" || v["qty"] != "must_be_positive" {
		t.Fatalf("NaN accepted: %v", v)
	}
}
