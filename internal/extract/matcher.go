package extract

import (
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/normalize"
	"github.com/rigforge/compat-cli/internal/vocab"
)

// Match is a canonical-model hit for a product's free text.
type Match struct {
	Name  string
	Spec  vocab.ModelSpec
	Score float64
}

// Matcher fuzzy-matches product titles against the vocabulary's
// canonical model list. No match is a normal outcome, not an error.
type Matcher struct {
	vocab     *vocab.Store
	threshold float64
}

// NewMatcher creates a Matcher with the given minimum token-Jaccard
// similarity threshold.
func NewMatcher(vs *vocab.Store, threshold float64) *Matcher {
	return &Matcher{vocab: vs, threshold: threshold}
}

// Match returns the closest canonical model of the given kind above the
// similarity threshold. Ties are broken by preferring the most specific
// (longest) canonical name.
func (m *Matcher) Match(freeText string, kind model.ComponentKind) (*Match, bool) {
	tokens := normalize.TokenSet(freeText)
	if len(tokens) == 0 {
		return nil, false
	}

	var (
		best      *vocab.ModelSpec
		bestScore float64
	)
	models := m.vocab.Current().ModelsForKind(kind)
	for i := range models {
		cand := &models[i]
		score := jaccard(tokens, cand.Tokens())
		if score < m.threshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && len(cand.Name) > len(best.Name)) {
			best = cand
			bestScore = score
		}
	}
	if best == nil {
		return nil, false
	}
	return &Match{Name: best.Name, Spec: *best, Score: bestScore}, true
}

// jaccard computes |a∩b| / |a∪b| over token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
