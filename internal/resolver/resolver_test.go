package resolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seed(t *testing.T, s store.Store, recs ...*model.CompatRecord) {
	t.Helper()
	for _, rec := range recs {
		_, err := s.UpsertExtracted(context.Background(), rec, false)
		require.NoError(t, err)
	}
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func cpu(id, socket string, conf float64) *model.CompatRecord {
	rec := &model.CompatRecord{
		ProductID: id, Kind: model.KindCPU,
		Confidence: conf, Source: model.SourceSpecs,
	}
	if socket != "" {
		rec.CPUSocket = strPtr(socket)
	}
	return rec
}

func mobo(id, socket string, conf float64) *model.CompatRecord {
	rec := &model.CompatRecord{
		ProductID: id, Kind: model.KindMotherboard,
		Confidence: conf, Source: model.SourceSpecs,
	}
	if socket != "" {
		rec.MoboSocket = strPtr(socket)
	}
	return rec
}

func moboMem(id, memType string, maxSpeed int, conf float64) *model.CompatRecord {
	rec := mobo(id, "AM5", conf)
	rec.MemoryType = strPtr(memType)
	if maxSpeed > 0 {
		rec.MemoryMaxSpeedMHz = intPtr(maxSpeed)
	}
	return rec
}

func ram(id, memType string, speed int, conf float64) *model.CompatRecord {
	rec := &model.CompatRecord{
		ProductID: id, Kind: model.KindRAM,
		Confidence: conf, Source: model.SourceSpecs,
	}
	if memType != "" {
		rec.MemoryType = strPtr(memType)
	}
	if speed > 0 {
		rec.MemoryMaxSpeedMHz = intPtr(speed)
	}
	return rec
}

func ids(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.ProductID)
	}
	return out
}

func TestResolveCPUStrictVsLenient(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		cpu("cpu-1", "AM5", 0.95),
		mobo("mobo-a", "AM5", 0.90),
		mobo("mobo-b", "AM4", 0.90),
		mobo("mobo-c", "", 0.90), // socket never extracted
	)
	r := New(s)
	ctx := context.Background()

	strict, err := r.Resolve(ctx, "cpu-1", ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, model.KindCPU, strict.PivotKind)
	assert.Equal(t, model.KindMotherboard, strict.TargetKind)
	assert.ElementsMatch(t, []string{"mobo-a"}, ids(strict.Compatible))
	assert.Empty(t, strict.Unknown)

	lenient, err := r.Resolve(ctx, "cpu-1", ModeLenient)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mobo-a"}, ids(lenient.Compatible))
	assert.ElementsMatch(t, []string{"mobo-c"}, ids(lenient.Unknown))
}

func TestResolveLowConfidenceMatch(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		cpu("cpu-1", "AM5", 0.95),
		mobo("mobo-weak", "AM5", 0.45),
	)
	r := New(s)
	ctx := context.Background()

	// An exact socket match below the confidence floor is demoted to
	// unknown under strict, asserted under lenient.
	strict, err := r.Resolve(ctx, "cpu-1", ModeStrict)
	require.NoError(t, err)
	assert.Empty(t, strict.Compatible)
	assert.ElementsMatch(t, []string{"mobo-weak"}, ids(strict.Unknown))

	lenient, err := r.Resolve(ctx, "cpu-1", ModeLenient)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mobo-weak"}, ids(lenient.Compatible))
	assert.Empty(t, lenient.Unknown)
}

func TestResolveMoboToRAM(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		moboMem("mobo-1", "DDR5", 5200, 0.95),
		ram("ram-fast", "DDR5", 6000, 0.90),
		ram("ram-slow", "DDR5", 4800, 0.90),
		ram("ram-ddr4", "DDR4", 3200, 0.90),
		ram("ram-unknown", "", 0, 0.90),
	)
	r := New(s)

	for _, mode := range []Mode{ModeStrict, ModeLenient} {
		res, err := r.Resolve(context.Background(), "mobo-1", mode)
		require.NoError(t, err)
		assert.Equal(t, model.KindRAM, res.TargetKind)
		assert.ElementsMatch(t, []string{"ram-fast", "ram-slow"}, ids(res.Compatible))

		// A faster kit is still compatible but flagged advisory.
		for _, c := range res.Compatible {
			assert.Equal(t, c.ProductID == "ram-fast", c.ExceedsRatedSpeed, c.ProductID)
		}
	}

	lenient, err := r.Resolve(context.Background(), "mobo-1", ModeLenient)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ram-unknown"}, ids(lenient.Unknown))
}

func TestResolvePartitionsDisjoint(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		cpu("cpu-1", "AM5", 0.95),
		mobo("mobo-a", "AM5", 0.90),
		mobo("mobo-b", "AM5", 0.30),
		mobo("mobo-c", "", 0.90),
		mobo("mobo-d", "AM4", 0.90),
	)
	r := New(s)

	for _, mode := range []Mode{ModeStrict, ModeLenient} {
		res, err := r.Resolve(context.Background(), "cpu-1", mode)
		require.NoError(t, err)
		for _, c := range res.Compatible {
			assert.NotContains(t, ids(res.Unknown), c.ProductID)
		}
	}

	// Strict never asserts more than lenient does.
	strict, err := r.Resolve(context.Background(), "cpu-1", ModeStrict)
	require.NoError(t, err)
	lenient, err := r.Resolve(context.Background(), "cpu-1", ModeLenient)
	require.NoError(t, err)
	assert.Subset(t, ids(lenient.Compatible), ids(strict.Compatible))
}

// rewritingStore serves one-record scan pages and rewrites a candidate's
// confidence between page reads, the way a concurrent re-extraction
// would while a resolve call is walking the table.
type rewritingStore struct {
	store.Store
	pivot   *model.CompatRecord
	targets []model.CompatRecord
	pages   int
}

func (s *rewritingStore) GetRecord(_ context.Context, productID string) (*model.CompatRecord, error) {
	if productID != s.pivot.ProductID {
		return nil, store.ErrNotFound
	}
	return s.pivot, nil
}

func (s *rewritingStore) ScanRecords(_ context.Context, _ model.ComponentKind, afterID string, _ int) ([]model.CompatRecord, error) {
	s.pages++
	if s.pages == 2 {
		s.targets[len(s.targets)-1].Confidence = 0.30
	}
	for i := range s.targets {
		if s.targets[i].ProductID > afterID {
			return s.targets[i : i+1], nil
		}
	}
	return nil, nil
}

func TestResolveRewriteDuringScanSeenOnce(t *testing.T) {
	s := &rewritingStore{
		pivot: cpu("cpu-1", "AM5", 0.95),
		targets: []model.CompatRecord{
			*mobo("mobo-a", "AM5", 0.90),
			*mobo("mobo-x", "AM5", 0.90),
		},
	}
	r := New(s)

	res, err := r.Resolve(context.Background(), "cpu-1", ModeStrict)
	require.NoError(t, err)

	// The rewritten board lands in exactly one partition: demoted to
	// unknown by its new confidence, never also asserted as compatible.
	assert.ElementsMatch(t, []string{"mobo-a"}, ids(res.Compatible))
	assert.ElementsMatch(t, []string{"mobo-x"}, ids(res.Unknown))
	for _, c := range res.Compatible {
		assert.NotContains(t, ids(res.Unknown), c.ProductID)
	}
}

func TestResolveNoPivotRecord(t *testing.T) {
	r := New(newTestStore(t))

	_, err := r.Resolve(context.Background(), "ghost", ModeStrict)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCannotResolve))
}

func TestResolvePivotMissingGatingAttribute(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, cpu("cpu-nosock", "", 0.95))
	r := New(s)

	_, err := r.Resolve(context.Background(), "cpu-nosock", ModeLenient)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCannotResolve))
}

func TestResolveRAMPivotUnsupported(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, ram("ram-1", "DDR5", 6000, 0.90))
	r := New(s)

	_, err := r.Resolve(context.Background(), "ram-1", ModeStrict)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedPivot))
}

func TestResolveEmptyTargetSet(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, cpu("cpu-1", "AM5", 0.95))
	r := New(s)

	res, err := r.Resolve(context.Background(), "cpu-1", ModeStrict)
	require.NoError(t, err)
	assert.NotNil(t, res.Compatible)
	assert.NotNil(t, res.Unknown)
	assert.Empty(t, res.Compatible)
	assert.Empty(t, res.Unknown)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, mode)

	mode, err = ParseMode("lenient")
	require.NoError(t, err)
	assert.Equal(t, ModeLenient, mode)

	_, err = ParseMode("fuzzy")
	require.Error(t, err)
}
