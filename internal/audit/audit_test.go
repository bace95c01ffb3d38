package audit

import (
	"context"
	"path/filepath"
	"testing"

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

func completeCPU(id string) *model.CompatRecord {
	return &model.CompatRecord{
		ProductID: id, Kind: model.KindCPU,
		CPUSocket: strPtr("AM5"), Confidence: 0.95, Source: model.SourceSpecs,
	}
}

func bareRAM(id string) *model.CompatRecord {
	return &model.CompatRecord{
		ProductID: id, Kind: model.KindRAM,
		Confidence: 0, Source: model.SourceInferred,
	}
}

func TestMissingFields(t *testing.T) {
	cpu := completeCPU("cpu-1")
	assert.Empty(t, MissingFields(cpu))

	cpu.CPUSocket = nil
	assert.Equal(t, []string{"cpu_socket"}, MissingFields(cpu))

	mobo := &model.CompatRecord{
		Kind:       model.KindMotherboard,
		MoboSocket: strPtr("AM5"),
	}
	assert.Equal(t, []string{"memory_type", "memory_max_speed_mhz"}, MissingFields(mobo))

	ram := bareRAM("ram-1")
	ram.MemoryType = strPtr("DDR5")
	ram.MemoryMaxSpeedMHz = intPtr(6000)
	assert.Empty(t, MissingFields(ram))
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		completeCPU("cpu-ok"),
		&model.CompatRecord{ProductID: "cpu-bad", Kind: model.KindCPU, Source: model.SourceInferred},
		bareRAM("ram-bad-1"),
		bareRAM("ram-bad-2"),
	)

	sum, err := New(s).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Scanned)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.ByKind[model.KindCPU])
	assert.Equal(t, 2, sum.ByKind[model.KindRAM])
	assert.Zero(t, sum.ByKind[model.KindMotherboard])
}

func TestCountEmptyStore(t *testing.T) {
	sum, err := New(newTestStore(t)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.Scanned)
}

// rewritingStore serves one-record scan pages and rewrites a record
// between page reads, the way a concurrent re-extraction would while a
// count is walking the table.
type rewritingStore struct {
	store.Store
	records []model.CompatRecord
	pages   int
}

func (s *rewritingStore) ScanRecords(_ context.Context, _ model.ComponentKind, afterID string, _ int) ([]model.CompatRecord, error) {
	s.pages++
	if s.pages == 2 {
		s.records[len(s.records)-1].MemoryType = strPtr("DDR5")
		s.records[len(s.records)-1].MemoryMaxSpeedMHz = intPtr(6000)
	}
	for i := range s.records {
		if s.records[i].ProductID > afterID {
			return s.records[i : i+1], nil
		}
	}
	return nil, nil
}

func TestCountStableUnderConcurrentRewrite(t *testing.T) {
	s := &rewritingStore{records: []model.CompatRecord{
		*bareRAM("ram-a"),
		*bareRAM("ram-b"),
	}}

	sum, err := New(s).Count(context.Background())
	require.NoError(t, err)

	// Each record is scanned exactly once even though one was rewritten
	// mid-walk; the rewritten record counts as complete.
	assert.Equal(t, 2, sum.Scanned)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.ByKind[model.KindRAM])
}

func TestListIncompleteAnnotates(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		completeCPU("cpu-ok"),
		bareRAM("ram-bad"),
	)

	out, err := New(s).ListIncomplete(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ram-bad", out[0].ProductID)
	assert.Equal(t, []string{"memory_type", "memory_max_speed_mhz"}, out[0].MissingFields)
}

func TestListIncompleteKindFilter(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		&model.CompatRecord{ProductID: "cpu-bad", Kind: model.KindCPU, Source: model.SourceInferred},
		bareRAM("ram-bad"),
	)

	out, err := New(s).ListIncomplete(context.Background(), model.KindRAM, 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ram-bad", out[0].ProductID)
}

func TestListIncompletePaging(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, bareRAM("a"), bareRAM("b"), bareRAM("c"))
	a := New(s)
	ctx := context.Background()

	page1, err := a.ListIncomplete(ctx, model.KindRAM, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := a.ListIncomplete(ctx, model.KindRAM, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	seen := map[string]bool{}
	for _, r := range append(page1, page2...) {
		seen[r.ProductID] = true
	}
	assert.Len(t, seen, 3)
}

func TestManualOverrideClearsBacklog(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, bareRAM("ram-1"))
	a := New(s)
	ctx := context.Background()

	sum, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)

	_, err = s.ApplyManualOverride(ctx, "ram-1", map[string]any{
		"memory_type":          "DDR5",
		"memory_max_speed_mhz": 6000,
	})
	require.NoError(t, err)

	sum, err = a.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}
