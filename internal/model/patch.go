package model

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/normalize"
)

// normalizedFields are stored through normalize.Attr so resolver
// comparisons stay exact-string. Form factor and canonical names keep
// their given spelling.
var normalizedFields = map[string]bool{
	"cpu_socket":   true,
	"cpu_brand":    true,
	"mobo_socket":  true,
	"mobo_chipset": true,
	"memory_type":  true,
}

// ErrInvalidPatch marks a manual override payload rejected by
// validation. The record is untouched when it is returned.
var ErrInvalidPatch = eris.New("model: invalid patch")

// ApplyPatch applies a manual override payload to r. The payload is
// validated as a whole before any field is written: unknown fields for
// the record's kind and numeric values outside the sanity ranges reject
// the entire patch. On success the record carries manual provenance and
// confidence 1.00.
func ApplyPatch(r *CompatRecord, fields map[string]any, now time.Time) error {
	if len(fields) == 0 {
		return eris.Wrap(ErrInvalidPatch, "no fields supplied")
	}

	// Validate first; no partial apply.
	for name, val := range fields {
		if !KindHasField(r.Kind, name) {
			return eris.Wrapf(ErrInvalidPatch, "field %q is not valid for kind %s", name, r.Kind)
		}
		if rng, ok := NumericRange(name); ok {
			n, err := toInt(val)
			if err != nil {
				return eris.Wrapf(ErrInvalidPatch, "field %q: %v", name, err)
			}
			if !rng.Contains(n) {
				return eris.Wrapf(ErrInvalidPatch, "field %q value %d outside sane range [%d, %d]",
					name, n, rng.Min, rng.Max)
			}
			continue
		}
		if name == "memory_ecc_support" {
			if _, ok := val.(bool); !ok {
				return eris.Wrapf(ErrInvalidPatch, "field %q expects a boolean", name)
			}
			continue
		}
		s, ok := val.(string)
		if !ok {
			return eris.Wrapf(ErrInvalidPatch, "field %q expects a string", name)
		}
		if s == "" {
			return eris.Wrapf(ErrInvalidPatch, "field %q is empty", name)
		}
	}

	for name, val := range fields {
		setField(r, name, val)
	}

	r.Source = SourceManual
	r.Confidence = 1.00
	r.UpdatedAt = now
	return nil
}

// setField writes an already validated value.
func setField(r *CompatRecord, name string, val any) {
	if _, ok := NumericRange(name); ok {
		n, _ := toInt(val)
		switch name {
		case "cpu_tdp_watts":
			r.CPUTDPWatts = &n
		case "memory_slots":
			r.MemorySlots = &n
		case "memory_max_speed_mhz":
			r.MemoryMaxSpeedMHz = &n
		case "memory_max_capacity_gb":
			r.MemoryMaxCapacityGB = &n
		case "memory_capacity_gb":
			r.MemoryCapacityGB = &n
		case "memory_modules":
			r.MemoryModules = &n
		}
		return
	}

	if name == "memory_ecc_support" {
		b := val.(bool)
		r.MemoryECCSupport = &b
		return
	}

	s := val.(string)
	if normalizedFields[name] {
		s = normalize.Attr(s)
	}
	switch name {
	case "cpu_socket":
		r.CPUSocket = &s
	case "cpu_brand":
		r.CPUBrand = &s
	case "cpu_generation":
		r.CPUGeneration = &s
	case "canonical_cpu_name":
		r.CanonicalCPUName = &s
	case "mobo_socket":
		r.MoboSocket = &s
	case "mobo_chipset":
		r.MoboChipset = &s
	case "mobo_form_factor":
		r.MoboFormFactor = &s
	case "canonical_mobo_name":
		r.CanonicalMoboName = &s
	case "memory_type":
		r.MemoryType = &s
	}
}

// toInt accepts JSON numbers (float64), ints, and int64 payload values.
func toInt(val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, eris.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	}
	return 0, eris.Errorf("expected an integer, got %T", val)
}
