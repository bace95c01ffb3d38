// Package extract turns a component's heterogeneous raw listing data
// into a canonical, confidence-scored compatibility record. Extraction
// is a deterministic rule cascade per field: structured spec lookup,
// then title pattern match, then canonical-name inference against the
// vocabulary. It never fails; the worst case is a record with no
// populated fields, confidence zero, and a warning.
package extract

import (
	"fmt"
	"strings"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/normalize"
	"github.com/rigforge/compat-cli/internal/vocab"
)

// Calibration collects the tunable confidence constants in one place.
// The defaults are a starting calibration, held by the property tests.
type Calibration struct {
	SpecsBaseline      float64 `yaml:"specs_baseline" mapstructure:"specs_baseline"`
	TitleBaseline      float64 `yaml:"title_baseline" mapstructure:"title_baseline"`
	InferredBaseline   float64 `yaml:"inferred_baseline" mapstructure:"inferred_baseline"`
	ConflictPenalty    float64 `yaml:"conflict_penalty" mapstructure:"conflict_penalty"`
	CorroborationBoost float64 `yaml:"corroboration_boost" mapstructure:"corroboration_boost"`
	BoostCap           float64 `yaml:"boost_cap" mapstructure:"boost_cap"`
	MatchThreshold     float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
}

// DefaultCalibration returns the baseline constants.
func DefaultCalibration() Calibration {
	return Calibration{
		SpecsBaseline:      0.95,
		TitleBaseline:      0.70,
		InferredBaseline:   0.60,
		ConflictPenalty:    0.25,
		CorroborationBoost: 0.10,
		BoostCap:           0.95,
		MatchThreshold:     0.60,
	}
}

func (c Calibration) baseline(src model.Source) float64 {
	switch src {
	case model.SourceSpecs:
		return c.SpecsBaseline
	case model.SourceTitle:
		return c.TitleBaseline
	default:
		return c.InferredBaseline
	}
}

// Extractor is safe for concurrent use; the vocabulary is read-only at
// extraction time.
type Extractor struct {
	vocab   *vocab.Store
	matcher *Matcher
	cal     Calibration
}

// New creates an Extractor over the given vocabulary.
func New(vs *vocab.Store, cal Calibration) *Extractor {
	return &Extractor{
		vocab:   vs,
		matcher: NewMatcher(vs, cal.MatchThreshold),
		cal:     cal,
	}
}

// strCand and intCand are per-source field candidates.
type strCand struct {
	val string
	ok  bool
}

type intCand struct {
	val int
	ok  bool
}

type boolCand struct {
	val bool
	ok  bool
}

// collector accumulates per-field provenance while a record is built.
type collector struct {
	sources      []model.Source
	corroborated bool
	conflicts    int
	warnings     []string
}

func (c *collector) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// resolveStr picks the strongest candidate, records conflicts between
// the winner and the next-strongest disagreeing candidate, and flags
// corroboration when the canonical-name inference agrees with a title
// pattern hit.
func (c *collector) resolveStr(field string, spec, title, inferred strCand) (string, bool) {
	switch {
	case spec.ok:
		next := title
		nextSrc := model.SourceTitle
		if !next.ok {
			next, nextSrc = inferred, model.SourceInferred
		}
		if next.ok && next.val != spec.val {
			c.conflicts++
			c.warnf("conflicting %s: specs=%q %s=%q (kept specs)", field, spec.val, nextSrc, next.val)
		}
		c.sources = append(c.sources, model.SourceSpecs)
		return spec.val, true
	case title.ok:
		if inferred.ok {
			if inferred.val == title.val {
				c.corroborated = true
			} else {
				c.conflicts++
				c.warnf("conflicting %s: title=%q inferred=%q (kept title)", field, title.val, inferred.val)
			}
		}
		c.sources = append(c.sources, model.SourceTitle)
		return title.val, true
	case inferred.ok:
		c.sources = append(c.sources, model.SourceInferred)
		return inferred.val, true
	}
	return "", false
}

func (c *collector) resolveInt(field string, spec, title, inferred intCand) (int, bool) {
	switch {
	case spec.ok:
		next := title
		nextSrc := model.SourceTitle
		if !next.ok {
			next, nextSrc = inferred, model.SourceInferred
		}
		if next.ok && next.val != spec.val {
			c.conflicts++
			c.warnf("conflicting %s: specs=%d %s=%d (kept specs)", field, spec.val, nextSrc, next.val)
		}
		c.sources = append(c.sources, model.SourceSpecs)
		return spec.val, true
	case title.ok:
		if inferred.ok {
			if inferred.val == title.val {
				c.corroborated = true
			} else {
				c.conflicts++
				c.warnf("conflicting %s: title=%d inferred=%d (kept title)", field, title.val, inferred.val)
			}
		}
		c.sources = append(c.sources, model.SourceTitle)
		return title.val, true
	case inferred.ok:
		c.sources = append(c.sources, model.SourceInferred)
		return inferred.val, true
	}
	return 0, false
}

func (c *collector) resolveBool(field string, spec, title boolCand) (bool, bool) {
	switch {
	case spec.ok:
		if title.ok && title.val != spec.val {
			c.conflicts++
			c.warnf("conflicting %s: specs=%t title=%t (kept specs)", field, spec.val, title.val)
		}
		c.sources = append(c.sources, model.SourceSpecs)
		return spec.val, true
	case title.ok:
		c.sources = append(c.sources, model.SourceTitle)
		return title.val, true
	}
	return false, false
}

// checkRange drops out-of-range candidates with a warning. The field is
// left to weaker candidates or stays unset; a nonsensical value is never
// stored.
func (c *collector) checkRange(field string, cand intCand) intCand {
	if !cand.ok {
		return cand
	}
	rng, has := model.NumericRange(field)
	if !has || rng.Contains(cand.val) {
		return cand
	}
	c.warnf("%s: value %d outside sane range [%d, %d]; ignored", field, cand.val, rng.Min, rng.Max)
	return intCand{}
}

// specStr looks up a structured string value: normalized for attribute
// fields, trimmed otherwise.
func specStr(specs map[string]string, field string, norm bool) strCand {
	raw, ok := lookupSpec(specs, field)
	if !ok {
		return strCand{}
	}
	if norm {
		v := normalize.Attr(raw)
		return strCand{val: v, ok: v != ""}
	}
	v := strings.TrimSpace(raw)
	return strCand{val: v, ok: v != ""}
}

func specInt(specs map[string]string, field string) intCand {
	raw, ok := lookupSpec(specs, field)
	if !ok {
		return intCand{}
	}
	n, ok := parseNumeric(raw)
	if !ok {
		return intCand{}
	}
	return intCand{val: n, ok: true}
}

func specBool(specs map[string]string, field string) boolCand {
	raw, ok := lookupSpec(specs, field)
	if !ok {
		return boolCand{}
	}
	b, ok := parseBool(raw)
	return boolCand{val: b, ok: ok}
}

// Extract produces the compatibility record for one product. It never
// returns an error; non-findings degrade to unset fields, low
// confidence, and warnings. Timestamps are stamped by the store on
// write, keeping Extract pure and re-extraction idempotent.
func (e *Extractor) Extract(kind model.ComponentKind, specs map[string]string, title string) model.CompatRecord {
	rec := model.CompatRecord{Kind: kind, Source: model.SourceInferred}
	col := &collector{}

	if !kind.Valid() {
		rec.Warnings = []string{fmt.Sprintf("unknown component kind %q", kind)}
		return rec
	}

	folded := normalize.Fold(title)
	match, matched := e.matcher.Match(title, kind)

	switch kind {
	case model.KindCPU:
		e.extractCPU(&rec, col, specs, folded, match, matched)
	case model.KindMotherboard:
		e.extractMobo(&rec, col, specs, folded, match, matched)
	case model.KindRAM:
		e.extractRAM(&rec, col, specs, folded)
	}

	if len(col.sources) == 0 {
		rec.Source = model.SourceInferred
		rec.Confidence = 0
		col.warnf("no recognizable attributes")
		rec.Warnings = col.warnings
		return rec
	}

	// Record provenance is the weakest source used across populated
	// fields; one weakly sourced field downgrades the whole record.
	weakest := col.sources[0]
	for _, s := range col.sources[1:] {
		if model.Weaker(s, weakest) {
			weakest = s
		}
	}
	rec.Source = weakest

	conf := e.cal.baseline(weakest)
	conf -= e.cal.ConflictPenalty * float64(col.conflicts)
	if conf < 0 {
		conf = 0
	}
	if weakest == model.SourceInferred && col.corroborated {
		conf += e.cal.CorroborationBoost
		if conf > e.cal.BoostCap {
			conf = e.cal.BoostCap
		}
	}
	if conf > 1 {
		conf = 1
	}
	rec.Confidence = conf
	rec.Warnings = col.warnings
	return rec
}

func (e *Extractor) extractCPU(rec *model.CompatRecord, col *collector, specs map[string]string, folded string, match *Match, matched bool) {
	var inf vocab.ModelSpec
	if matched {
		inf = match.Spec
		// Canonical names are cross-reference metadata supplied by the
		// matcher; they do not participate in provenance weighting.
		rec.CanonicalCPUName = &match.Name
	}

	titleSock := strCand{}
	if v, ok := titleSocket(folded); ok {
		titleSock = strCand{val: v, ok: true}
	}
	if v, ok := col.resolveStr("cpu_socket",
		specStr(specs, "cpu_socket", true),
		titleSock,
		strCand{val: inf.Socket, ok: matched && inf.Socket != ""},
	); ok {
		rec.CPUSocket = &v
	}

	specBrand := specStr(specs, "cpu_brand", true)
	if specBrand.ok {
		// Map vendor spellings ("Advanced Micro Devices", "Ryzen") onto
		// the two canonical brands where possible.
		if b, ok := titleBrand(specBrand.val); ok {
			specBrand.val = b
		}
	}
	titleBr := strCand{}
	if v, ok := titleBrand(folded); ok {
		titleBr = strCand{val: v, ok: true}
	}
	if v, ok := col.resolveStr("cpu_brand",
		specBrand,
		titleBr,
		strCand{val: inf.Brand, ok: matched && inf.Brand != ""},
	); ok {
		rec.CPUBrand = &v
	}

	if v, ok := col.resolveStr("cpu_generation",
		specStr(specs, "cpu_generation", false),
		strCand{},
		strCand{val: inf.Generation, ok: matched && inf.Generation != ""},
	); ok {
		rec.CPUGeneration = &v
	}

	titleWatts := intCand{}
	if n, ok := titleTDP(folded); ok {
		titleWatts = intCand{val: n, ok: true}
	}
	if v, ok := col.resolveInt("cpu_tdp_watts",
		col.checkRange("cpu_tdp_watts", specInt(specs, "cpu_tdp_watts")),
		col.checkRange("cpu_tdp_watts", titleWatts),
		intCand{val: inf.TDPWatts, ok: matched && inf.TDPWatts > 0},
	); ok {
		rec.CPUTDPWatts = &v
	}
}

func (e *Extractor) extractMobo(rec *model.CompatRecord, col *collector, specs map[string]string, folded string, match *Match, matched bool) {
	voc := e.vocab.Current()

	var inf vocab.ModelSpec
	if matched {
		inf = match.Spec
		rec.CanonicalMoboName = &match.Name
	}

	// Chipset first: a known chipset implies the socket, which feeds the
	// socket cascade as an inferred candidate.
	titleChip := strCand{}
	for _, tok := range normalize.Tokens(folded) {
		if _, ok := voc.SocketForChipset(tok); ok {
			titleChip = strCand{val: tok, ok: true}
			break
		}
	}
	chipset, chipsetSet := col.resolveStr("mobo_chipset",
		specStr(specs, "mobo_chipset", true),
		titleChip,
		strCand{val: inf.Chipset, ok: matched && inf.Chipset != ""},
	)
	if chipsetSet {
		rec.MoboChipset = &chipset
	}

	infSock := strCand{val: inf.Socket, ok: matched && inf.Socket != ""}
	if !infSock.ok && chipsetSet {
		if s, ok := voc.SocketForChipset(chipset); ok {
			infSock = strCand{val: s, ok: true}
		}
	}
	titleSock := strCand{}
	if v, ok := titleSocket(folded); ok {
		titleSock = strCand{val: v, ok: true}
	}
	if v, ok := col.resolveStr("mobo_socket",
		specStr(specs, "mobo_socket", true),
		titleSock,
		infSock,
	); ok {
		rec.MoboSocket = &v
	}

	specFF := specStr(specs, "mobo_form_factor", false)
	if specFF.ok {
		if c, ok := voc.CanonicalFormFactor(specFF.val); ok {
			specFF.val = c
		} else {
			specFF.val = normalize.Attr(specFF.val)
		}
	}
	titleFF := strCand{}
	if m := formTitleRe.FindString(folded); m != "" {
		if c, ok := voc.CanonicalFormFactor(m); ok {
			titleFF = strCand{val: c, ok: true}
		}
	}
	if v, ok := col.resolveStr("mobo_form_factor",
		specFF,
		titleFF,
		strCand{val: inf.FormFactor, ok: matched && inf.FormFactor != ""},
	); ok {
		rec.MoboFormFactor = &v
	}

	titleMemType := strCand{}
	if v, ok := titleMemoryType(folded); ok {
		titleMemType = strCand{val: v, ok: true}
	}
	if v, ok := col.resolveStr("memory_type",
		specStr(specs, "memory_type", true),
		titleMemType,
		strCand{val: inf.MemoryType, ok: matched && inf.MemoryType != ""},
	); ok {
		rec.MemoryType = &v
	}

	titleSpeed := intCand{}
	if n, ok := titleMemorySpeed(folded); ok {
		titleSpeed = intCand{val: n, ok: true}
	}
	if v, ok := col.resolveInt("memory_max_speed_mhz",
		col.checkRange("memory_max_speed_mhz", specInt(specs, "memory_max_speed_mhz")),
		col.checkRange("memory_max_speed_mhz", titleSpeed),
		intCand{},
	); ok {
		rec.MemoryMaxSpeedMHz = &v
	}

	if v, ok := col.resolveInt("memory_slots",
		col.checkRange("memory_slots", specInt(specs, "memory_slots")),
		intCand{}, intCand{},
	); ok {
		rec.MemorySlots = &v
	}

	if v, ok := col.resolveInt("memory_max_capacity_gb",
		col.checkRange("memory_max_capacity_gb", specInt(specs, "memory_max_capacity_gb")),
		intCand{}, intCand{},
	); ok {
		rec.MemoryMaxCapacityGB = &v
	}

	titleEcc := boolCand{}
	if b, ok := titleECC(folded); ok {
		titleEcc = boolCand{val: b, ok: true}
	}
	if v, ok := col.resolveBool("memory_ecc_support",
		specBool(specs, "memory_ecc_support"),
		titleEcc,
	); ok {
		rec.MemoryECCSupport = &v
	}
}

func (e *Extractor) extractRAM(rec *model.CompatRecord, col *collector, specs map[string]string, folded string) {
	titleMemType := strCand{}
	if v, ok := titleMemoryType(folded); ok {
		titleMemType = strCand{val: v, ok: true}
	}
	if v, ok := col.resolveStr("memory_type",
		specStr(specs, "memory_type", true),
		titleMemType,
		strCand{},
	); ok {
		rec.MemoryType = &v
	}

	titleSpeed := intCand{}
	if n, ok := titleMemorySpeed(folded); ok {
		titleSpeed = intCand{val: n, ok: true}
	}
	if v, ok := col.resolveInt("memory_max_speed_mhz",
		col.checkRange("memory_max_speed_mhz", specInt(specs, "memory_max_speed_mhz")),
		col.checkRange("memory_max_speed_mhz", titleSpeed),
		intCand{},
	); ok {
		rec.MemoryMaxSpeedMHz = &v
	}

	// Kit notation ("2x16GB") supplies both module count and total
	// capacity; the bare capacity pattern would otherwise capture the
	// per-module size.
	kitModules, kitTotal, hasKit := titleKit(folded)

	titleCap := intCand{}
	if hasKit {
		titleCap = intCand{val: kitTotal, ok: true}
	} else if n, ok := titleCapacity(folded); ok {
		titleCap = intCand{val: n, ok: true}
	}
	if v, ok := col.resolveInt("memory_capacity_gb",
		col.checkRange("memory_capacity_gb", specInt(specs, "memory_capacity_gb")),
		col.checkRange("memory_capacity_gb", titleCap),
		intCand{},
	); ok {
		rec.MemoryCapacityGB = &v
	}

	titleMods := intCand{}
	if hasKit {
		titleMods = intCand{val: kitModules, ok: true}
	}
	if v, ok := col.resolveInt("memory_modules",
		col.checkRange("memory_modules", specInt(specs, "memory_modules")),
		col.checkRange("memory_modules", titleMods),
		intCand{},
	); ok {
		rec.MemoryModules = &v
	}

	titleEcc := boolCand{}
	if b, ok := titleECC(folded); ok {
		titleEcc = boolCand{val: b, ok: true}
	}
	if v, ok := col.resolveBool("memory_ecc_support",
		specBool(specs, "memory_ecc_support"),
		titleEcc,
	); ok {
		rec.MemoryECCSupport = &v
	}
}
