package model

import "time"

// ComponentKind identifies which attribute subset of a CompatRecord is
// meaningful and which fields are required for completeness.
type ComponentKind string

const (
	KindCPU         ComponentKind = "cpu"
	KindMotherboard ComponentKind = "motherboard"
	KindRAM         ComponentKind = "ram"
)

// Valid reports whether k is a known component kind.
func (k ComponentKind) Valid() bool {
	switch k {
	case KindCPU, KindMotherboard, KindRAM:
		return true
	}
	return false
}

// Source tags where a record's values came from. Ordered weakest to
// strongest: inferred < title < specs. Manual overrides sit outside the
// ordering and are authoritative.
type Source string

const (
	SourceSpecs    Source = "specs"
	SourceTitle    Source = "title"
	SourceInferred Source = "inferred"
	SourceManual   Source = "manual"
)

// sourceRank orders sources by trust; higher is stronger.
var sourceRank = map[Source]int{
	SourceInferred: 1,
	SourceTitle:    2,
	SourceSpecs:    3,
	SourceManual:   4,
}

// Weaker reports whether a is a weaker source than b.
func Weaker(a, b Source) bool {
	return sourceRank[a] < sourceRank[b]
}

// CompatRecord is the canonical compatibility row for one product.
// Unset fields are nil, never placeholder values. Socket, chipset and
// memory-type strings are stored normalized (uppercase, punctuation
// stripped, whitespace collapsed) so resolver comparisons are exact.
type CompatRecord struct {
	ProductID string        `json:"product_id"`
	Kind      ComponentKind `json:"component_kind"`

	// CPU-only.
	CPUSocket        *string `json:"cpu_socket,omitempty"`
	CPUBrand         *string `json:"cpu_brand,omitempty"`
	CPUGeneration    *string `json:"cpu_generation,omitempty"`
	CPUTDPWatts      *int    `json:"cpu_tdp_watts,omitempty"`
	CanonicalCPUName *string `json:"canonical_cpu_name,omitempty"`

	// Motherboard-only.
	MoboSocket        *string `json:"mobo_socket,omitempty"`
	MoboChipset       *string `json:"mobo_chipset,omitempty"`
	MoboFormFactor    *string `json:"mobo_form_factor,omitempty"`
	CanonicalMoboName *string `json:"canonical_mobo_name,omitempty"`

	// Shared memory attributes. For motherboards these describe the
	// supported range; for RAM kits the actual value.
	MemoryType          *string `json:"memory_type,omitempty"`
	MemorySlots         *int    `json:"memory_slots,omitempty"`
	MemoryMaxSpeedMHz   *int    `json:"memory_max_speed_mhz,omitempty"`
	MemoryMaxCapacityGB *int    `json:"memory_max_capacity_gb,omitempty"`
	MemoryCapacityGB    *int    `json:"memory_capacity_gb,omitempty"`
	MemoryModules       *int    `json:"memory_modules,omitempty"`
	MemoryECCSupport    *bool   `json:"memory_ecc_support,omitempty"`

	Confidence float64  `json:"confidence"`
	Source     Source   `json:"extraction_source"`
	Warnings   []string `json:"extraction_warnings,omitempty"`

	ExtractedAt time.Time `json:"extracted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// requiredFields drives the missing-field auditor. Fixed per kind.
var requiredFields = map[ComponentKind][]string{
	KindCPU:         {"cpu_socket"},
	KindMotherboard: {"mobo_socket", "memory_type", "memory_max_speed_mhz"},
	KindRAM:         {"memory_type", "memory_max_speed_mhz"},
}

// RequiredFields returns the required field names for a kind.
func RequiredFields(kind ComponentKind) []string {
	return requiredFields[kind]
}

// FieldSet reports whether the named field carries a value on r.
// Unknown field names report false.
func (r *CompatRecord) FieldSet(name string) bool {
	switch name {
	case "cpu_socket":
		return r.CPUSocket != nil
	case "cpu_brand":
		return r.CPUBrand != nil
	case "cpu_generation":
		return r.CPUGeneration != nil
	case "cpu_tdp_watts":
		return r.CPUTDPWatts != nil
	case "canonical_cpu_name":
		return r.CanonicalCPUName != nil
	case "mobo_socket":
		return r.MoboSocket != nil
	case "mobo_chipset":
		return r.MoboChipset != nil
	case "mobo_form_factor":
		return r.MoboFormFactor != nil
	case "canonical_mobo_name":
		return r.CanonicalMoboName != nil
	case "memory_type":
		return r.MemoryType != nil
	case "memory_slots":
		return r.MemorySlots != nil
	case "memory_max_speed_mhz":
		return r.MemoryMaxSpeedMHz != nil
	case "memory_max_capacity_gb":
		return r.MemoryMaxCapacityGB != nil
	case "memory_capacity_gb":
		return r.MemoryCapacityGB != nil
	case "memory_modules":
		return r.MemoryModules != nil
	case "memory_ecc_support":
		return r.MemoryECCSupport != nil
	}
	return false
}

// fieldsByKind lists the editable attribute fields valid for each kind,
// in schema order. Drives manual-override validation.
var fieldsByKind = map[ComponentKind][]string{
	KindCPU: {
		"cpu_socket", "cpu_brand", "cpu_generation", "cpu_tdp_watts",
		"canonical_cpu_name",
	},
	KindMotherboard: {
		"mobo_socket", "mobo_chipset", "mobo_form_factor",
		"canonical_mobo_name", "memory_type", "memory_slots",
		"memory_max_speed_mhz", "memory_max_capacity_gb",
		"memory_ecc_support",
	},
	KindRAM: {
		"memory_type", "memory_max_speed_mhz", "memory_capacity_gb",
		"memory_modules", "memory_ecc_support",
	},
}

// FieldsForKind returns the attribute field names valid for a kind.
func FieldsForKind(kind ComponentKind) []string {
	return fieldsByKind[kind]
}

// KindHasField reports whether the named field is valid for the kind.
func KindHasField(kind ComponentKind, name string) bool {
	for _, f := range fieldsByKind[kind] {
		if f == name {
			return true
		}
	}
	return false
}

// IntRange bounds a numeric field for sanity checking. Values outside
// the range are rejected rather than stored.
type IntRange struct {
	Min, Max int
}

// Contains reports whether v falls inside the range.
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Sanity ranges shared by extraction and manual-edit validation.
var (
	MemorySpeedRange    = IntRange{Min: 800, Max: 12000}
	MemoryCapacityRange = IntRange{Min: 1, Max: 2048}
	MemoryModulesRange  = IntRange{Min: 1, Max: 8}
	MemorySlotsRange    = IntRange{Min: 1, Max: 16}
	TDPRange            = IntRange{Min: 10, Max: 500}
)

// NumericRange returns the sanity range for a numeric field name, if any.
func NumericRange(field string) (IntRange, bool) {
	switch field {
	case "memory_max_speed_mhz":
		return MemorySpeedRange, true
	case "memory_max_capacity_gb", "memory_capacity_gb":
		return MemoryCapacityRange, true
	case "memory_modules":
		return MemoryModulesRange, true
	case "memory_slots":
		return MemorySlotsRange, true
	case "cpu_tdp_watts":
		return TDPRange, true
	}
	return IntRange{}, false
}
