package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/vocab"
)

func newTestMatcher(extra ...vocab.ModelSpec) *Matcher {
	v := vocab.Default()
	if len(extra) > 0 {
		v = vocab.WithModels(v, extra)
	}
	return NewMatcher(vocab.NewStore(v), DefaultCalibration().MatchThreshold)
}

func TestMatchExactTitle(t *testing.T) {
	m := newTestMatcher()

	got, ok := m.Match("AMD Ryzen 5 7600X Desktop Processor", model.KindCPU)
	require.True(t, ok)
	assert.Equal(t, "AMD Ryzen 5 7600X", got.Name)
	assert.Equal(t, "AM5", got.Spec.Socket)
	assert.Greater(t, got.Score, 0.0)
}

func TestMatchBelowThresholdIsNormal(t *testing.T) {
	m := newTestMatcher()

	got, ok := m.Match("Generic Office Tower Bundle", model.KindCPU)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMatchEmptyTitle(t *testing.T) {
	m := newTestMatcher()

	_, ok := m.Match("", model.KindCPU)
	assert.False(t, ok)
	_, ok = m.Match("Processor, Tray", model.KindCPU) // all noise tokens
	assert.False(t, ok)
}

func TestMatchWrongKindDoesNotMatch(t *testing.T) {
	m := newTestMatcher()

	_, ok := m.Match("AMD Ryzen 5 7600X", model.KindMotherboard)
	assert.False(t, ok)
}

func TestMatchTieBreaksOnLongestName(t *testing.T) {
	// Two models whose token sets score identically against the query;
	// the more specific name must win.
	m := newTestMatcher(
		vocab.ModelSpec{Kind: model.KindCPU, Name: "Zeta 9000", Socket: "AM5"},
		vocab.ModelSpec{Kind: model.KindCPU, Name: "Zeta 9000X", Socket: "AM4"},
	)

	got, ok := m.Match("Zeta 9000 9000X", model.KindCPU)
	require.True(t, ok)
	assert.Equal(t, "Zeta 9000X", got.Name)
}

func TestMatchPrefersHigherScore(t *testing.T) {
	m := newTestMatcher()

	got, ok := m.Match("Intel Core i5-13600K Raptor Lake", model.KindCPU)
	require.True(t, ok)
	assert.Equal(t, "Intel Core i5-13600K", got.Name)
}
