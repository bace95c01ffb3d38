package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rigforge/compat-cli/internal/normalize"
)

// Spec tables use wildly different key schemas across retailers. Each
// logical field lists the key spellings seen in the wild, compared after
// normalization so "Socket Type", "socket-type" and "SOCKET TYPE" all hit.
var specKeySynonyms = map[string][]string{
	"cpu_socket":  {"SOCKET", "SOCKET TYPE", "CPU SOCKET", "CPU SOCKET TYPE", "SOCKET CPU"},
	"mobo_socket": {"SOCKET", "SOCKET TYPE", "CPU SOCKET", "CPU SOCKET TYPE", "SOCKET CPU"},
	"cpu_brand":   {"BRAND", "MANUFACTURER", "CPU BRAND", "CPU MANUFACTURER"},
	"cpu_generation": {
		"GENERATION", "CPU GENERATION", "SERIES", "PROCESSOR SERIES",
		"CODENAME", "CORE NAME", "MICROARCHITECTURE",
	},
	"cpu_tdp_watts": {"TDP", "TDP W", "THERMAL DESIGN POWER", "DEFAULT TDP", "WATTAGE"},
	"mobo_chipset":  {"CHIPSET", "CHIPSET TYPE", "MOTHERBOARD CHIPSET", "CPU CHIPSET"},
	"mobo_form_factor": {
		"FORM FACTOR", "MOTHERBOARD FORM FACTOR", "BOARD FORM FACTOR", "SIZE",
	},
	"memory_type": {
		"MEMORY TYPE", "RAM TYPE", "SUPPORTED MEMORY", "MEMORY STANDARD",
		"RAM TECHNOLOGY", "TYPE",
	},
	"memory_slots": {"MEMORY SLOTS", "DIMM SLOTS", "RAM SLOTS", "NUMBER OF DIMM SLOTS"},
	"memory_max_speed_mhz": {
		"MEMORY SPEED", "SPEED", "MEMORY FREQUENCY", "FREQUENCY", "CLOCK SPEED",
		"MAX MEMORY SPEED", "RAM SPEED", "DATA RATE",
	},
	"memory_max_capacity_gb": {
		"MAX MEMORY", "MAXIMUM MEMORY", "MAX MEMORY CAPACITY",
		"MAXIMUM SUPPORTED MEMORY", "MAX RAM",
	},
	"memory_capacity_gb": {
		"CAPACITY", "MEMORY CAPACITY", "TOTAL CAPACITY", "SIZE", "MEMORY SIZE",
	},
	"memory_modules": {"MODULES", "NUMBER OF MODULES", "KIT CONFIGURATION", "MODULE COUNT"},
	"memory_ecc_support": {"ECC", "ECC SUPPORT", "ECC MEMORY", "ERROR CORRECTION"},
}

// lookupSpec finds the first synonym key present in the raw spec table.
// Keys are compared normalized.
func lookupSpec(specs map[string]string, field string) (string, bool) {
	syns := specKeySynonyms[field]
	if len(syns) == 0 {
		return "", false
	}
	// Deterministic key order: when two raw keys normalize identically,
	// the lexicographically first one wins, keeping re-extraction
	// idempotent for identical input.
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	norm := make(map[string]string, len(specs))
	for _, k := range keys {
		nk := normalize.Attr(k)
		if _, exists := norm[nk]; !exists {
			norm[nk] = specs[k]
		}
	}
	for _, syn := range syns {
		if v, ok := norm[syn]; ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// Title pattern vocabulary. Applied to the folded title.
var (
	socketTitleRe  = regexp.MustCompile(`\b(AM3\+?|AM[45]|STRX4|STR5|SWRX8|TR4|SP5|FM2\+?|LGA ?\d{3,4})\b`)
	memTypeTitleRe = regexp.MustCompile(`\bDDR[2-5]\b`)
	// "DDR5-6000", "DDR4 3200" style data rates.
	memSpeedDDRRe = regexp.MustCompile(`\bDDR[2-5][- ]?(\d{3,5})\b`)
	// "6000MHz", "6000 MT/s" style.
	memSpeedUnitRe = regexp.MustCompile(`\b(\d{3,5})\s?(?:MHZ|MT/S)\b`)
	// "2x16GB", "2 X 8 GB" kit configurations.
	kitRe = regexp.MustCompile(`\b([1-8])\s?X\s?(\d{1,3})\s?GB\b`)
	// Bare capacity.
	capacityRe = regexp.MustCompile(`\b(\d{1,4})\s?GB\b`)
	tdpTitleRe = regexp.MustCompile(`\b(\d{2,3})\s?W\b`)
	formTitleRe = regexp.MustCompile(`\b(E-?ATX|MICRO[- ]?ATX|M-ATX|MATX|MINI[- ]?ITX|ITX|ATX)\b`)
	brandAMDRe  = regexp.MustCompile(`\b(AMD|RYZEN|THREADRIPPER|ATHLON)\b`)
	brandIntelRe = regexp.MustCompile(`\b(INTEL|CORE I[3579]|CORE ULTRA|PENTIUM|CELERON|XEON)\b`)
	nonECCRe    = regexp.MustCompile(`\bNON[- ]?ECC\b`)
	eccRe       = regexp.MustCompile(`\bECC\b`)
)

// titleSocket pulls a socket token out of the folded title.
func titleSocket(folded string) (string, bool) {
	m := socketTitleRe.FindString(folded)
	if m == "" {
		return "", false
	}
	return normalize.Attr(m), true
}

func titleMemoryType(folded string) (string, bool) {
	m := memTypeTitleRe.FindString(folded)
	if m == "" {
		return "", false
	}
	return m, true
}

func titleMemorySpeed(folded string) (int, bool) {
	if g := memSpeedDDRRe.FindStringSubmatch(folded); g != nil {
		n, err := strconv.Atoi(g[1])
		if err == nil {
			return n, true
		}
	}
	if g := memSpeedUnitRe.FindStringSubmatch(folded); g != nil {
		n, err := strconv.Atoi(g[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// titleKit extracts module count and total capacity from kit notation.
func titleKit(folded string) (modules, totalGB int, ok bool) {
	g := kitRe.FindStringSubmatch(folded)
	if g == nil {
		return 0, 0, false
	}
	m, err1 := strconv.Atoi(g[1])
	per, err2 := strconv.Atoi(g[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return m, m * per, true
}

func titleCapacity(folded string) (int, bool) {
	g := capacityRe.FindStringSubmatch(folded)
	if g == nil {
		return 0, false
	}
	n, err := strconv.Atoi(g[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func titleTDP(folded string) (int, bool) {
	g := tdpTitleRe.FindStringSubmatch(folded)
	if g == nil {
		return 0, false
	}
	n, err := strconv.Atoi(g[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func titleBrand(folded string) (string, bool) {
	if brandAMDRe.MatchString(folded) {
		return "AMD", true
	}
	if brandIntelRe.MatchString(folded) {
		return "INTEL", true
	}
	return "", false
}

// titleECC distinguishes "Non-ECC" from "ECC"; the bare pattern alone
// would match both.
func titleECC(folded string) (bool, bool) {
	if nonECCRe.MatchString(folded) {
		return false, true
	}
	if eccRe.MatchString(folded) {
		return true, true
	}
	return false, false
}

// unitStripRe removes measurement units and separators from structured
// numeric values before parsing.
var unitStripRe = regexp.MustCompile(`(?i)\s*(MHZ|MT/S|GHZ|GB|TB|WATTS|W)\b\.?`)

// parseNumeric parses a structured numeric value with unit stripping.
// Handles data-rate spellings like "DDR5-6000".
func parseNumeric(raw string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if g := memSpeedDDRRe.FindStringSubmatch(s); g != nil {
		if n, err := strconv.Atoi(g[1]); err == nil {
			return n, true
		}
	}
	s = unitStripRe.ReplaceAllString(s, "")
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseBool interprets yes/no style spec values.
func parseBool(raw string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES", "Y", "TRUE", "SUPPORTED", "ECC":
		return true, true
	case "NO", "N", "FALSE", "NOT SUPPORTED", "UNSUPPORTED", "NON-ECC", "NON ECC":
		return false, true
	}
	return false, false
}
