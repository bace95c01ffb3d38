// Package vocab holds the static reference vocabulary: known sockets,
// chipsets, memory types, and canonical model names with their
// compatibility attributes. The vocabulary is loaded once at startup and
// shared read-only; updates replace the whole structure atomically.
package vocab

import (
	"sync/atomic"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/normalize"
)

// ModelSpec is one canonical model entry: the attributes a product is
// known to have once its title is matched to this model.
type ModelSpec struct {
	Kind       model.ComponentKind `yaml:"kind"`
	Name       string              `yaml:"name"`
	Brand      string              `yaml:"brand,omitempty"`
	Socket     string              `yaml:"socket,omitempty"`
	Generation string              `yaml:"generation,omitempty"`
	Chipset    string              `yaml:"chipset,omitempty"`
	FormFactor string              `yaml:"form_factor,omitempty"`
	MemoryType string              `yaml:"memory_type,omitempty"`
	TDPWatts   int                 `yaml:"tdp_watts,omitempty"`

	tokens map[string]bool // normalized name tokens, built at load
}

// Tokens returns the normalized token set of the canonical name.
func (m *ModelSpec) Tokens() map[string]bool {
	return m.tokens
}

// Vocabulary is the full reference table set. All attribute values are
// stored normalized. Never mutate a published Vocabulary; build a new
// one and swap it.
type Vocabulary struct {
	Sockets     []string          `yaml:"sockets"`
	ChipsetMap  map[string]string `yaml:"chipsets"`     // chipset -> socket
	MemoryTypes []string          `yaml:"memory_types"`
	FormFactors map[string]string `yaml:"form_factors"` // alias -> canonical
	Models      []ModelSpec       `yaml:"models"`

	socketSet map[string]bool
	memTypes  map[string]bool
}

// build normalizes all entries and creates the lookup indexes.
func (v *Vocabulary) build() {
	v.socketSet = make(map[string]bool, len(v.Sockets))
	for i, s := range v.Sockets {
		n := normalize.Attr(s)
		v.Sockets[i] = n
		v.socketSet[n] = true
	}

	chipsets := make(map[string]string, len(v.ChipsetMap))
	for c, s := range v.ChipsetMap {
		chipsets[normalize.Attr(c)] = normalize.Attr(s)
	}
	v.ChipsetMap = chipsets

	v.memTypes = make(map[string]bool, len(v.MemoryTypes))
	for i, m := range v.MemoryTypes {
		n := normalize.Attr(m)
		v.MemoryTypes[i] = n
		v.memTypes[n] = true
	}

	ff := make(map[string]string, len(v.FormFactors))
	for alias, canon := range v.FormFactors {
		ff[normalize.Attr(alias)] = canon
	}
	v.FormFactors = ff

	for i := range v.Models {
		m := &v.Models[i]
		m.Socket = normalize.Attr(m.Socket)
		m.Chipset = normalize.Attr(m.Chipset)
		m.MemoryType = normalize.Attr(m.MemoryType)
		m.Brand = normalize.Attr(m.Brand)
		m.tokens = normalize.TokenSet(m.Name)
	}
}

// KnownSocket reports whether s (normalized) is a known socket.
func (v *Vocabulary) KnownSocket(s string) bool {
	return v.socketSet[normalize.Attr(s)]
}

// KnownMemoryType reports whether s (normalized) is a known memory type.
func (v *Vocabulary) KnownMemoryType(s string) bool {
	return v.memTypes[normalize.Attr(s)]
}

// SocketForChipset returns the socket a chipset implies, if known.
func (v *Vocabulary) SocketForChipset(chipset string) (string, bool) {
	s, ok := v.ChipsetMap[normalize.Attr(chipset)]
	return s, ok
}

// CanonicalFormFactor maps a form-factor spelling to its canonical form.
func (v *Vocabulary) CanonicalFormFactor(s string) (string, bool) {
	c, ok := v.FormFactors[normalize.Attr(s)]
	return c, ok
}

// ModelsForKind returns the canonical models of the given kind.
func (v *Vocabulary) ModelsForKind(kind model.ComponentKind) []ModelSpec {
	out := make([]ModelSpec, 0, len(v.Models))
	for _, m := range v.Models {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Store publishes a Vocabulary to concurrent readers. Swap replaces the
// whole vocabulary atomically so readers never see a partial update.
type Store struct {
	current atomic.Pointer[Vocabulary]
}

// NewStore creates a Store publishing v.
func NewStore(v *Vocabulary) *Store {
	s := &Store{}
	s.current.Store(v)
	return s
}

// Current returns the live vocabulary.
func (s *Store) Current() *Vocabulary {
	return s.current.Load()
}

// Swap atomically replaces the live vocabulary.
func (s *Store) Swap(v *Vocabulary) {
	s.current.Store(v)
}
