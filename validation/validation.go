package validation

import (
	"math"
	"slices"
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error lets a Violations value travel as an error.
func (v Violations) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if math.IsNaN(val) || val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if math.IsNaN(val) || val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// RangeFloat also rejects NaN and infinities, which no bound comparison catches.
func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if math.IsNaN(val) || math.IsInf(val, 0) || val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// OneOf flags value when it is not among allowed.
func OneOf(field, value string, allowed []string, v Violations) {
	if !slices.Contains(allowed, value) {
		v[field] = "invalid_choice"
	}
}

// Date flags a non-empty value that is not a yyyy-mm-dd date.
func Date(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		v[field] = "invalid_date"
	}
}
