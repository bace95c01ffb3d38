package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigforge/compat-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func cpuRecord(productID string) *model.CompatRecord {
	return &model.CompatRecord{
		ProductID:  productID,
		Kind:       model.KindCPU,
		CPUSocket:  strPtr("AM5"),
		CPUBrand:   strPtr("AMD"),
		Confidence: 0.95,
		Source:     model.SourceSpecs,
	}
}

func ramRecord(productID string) *model.CompatRecord {
	return &model.CompatRecord{
		ProductID:         productID,
		Kind:              model.KindRAM,
		MemoryType:        strPtr("DDR5"),
		MemoryMaxSpeedMHz: intPtr(6000),
		Confidence:        0.70,
		Source:            model.SourceTitle,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UpsertAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := cpuRecord("p-1")
		rec.Warnings = []string{"conflicting cpu_socket: specs=AM5 title=AM4"}
		applied, err := s.UpsertExtracted(ctx, rec, false)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.False(t, rec.ExtractedAt.IsZero())
		assert.False(t, rec.UpdatedAt.IsZero())

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, model.KindCPU, got.Kind)
		require.NotNil(t, got.CPUSocket)
		assert.Equal(t, "AM5", *got.CPUSocket)
		assert.Equal(t, model.SourceSpecs, got.Source)
		assert.InDelta(t, 0.95, got.Confidence, 1e-9)
		assert.Equal(t, rec.Warnings, got.Warnings)
		assert.Nil(t, got.MemoryType)
	})

	t.Run("UpsertOverwritesAutomatic", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)

		next := cpuRecord("p-1")
		next.CPUSocket = strPtr("AM4")
		next.Confidence = 0.70
		next.Source = model.SourceTitle
		applied, err := s.UpsertExtracted(ctx, next, false)
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "AM4", *got.CPUSocket)
		assert.Equal(t, model.SourceTitle, got.Source)
	})

	t.Run("ManualOverrideWins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)

		manual, err := s.ApplyManualOverride(ctx, "p-1", map[string]any{"cpu_socket": "LGA 1700"})
		require.NoError(t, err)
		assert.Equal(t, "LGA1700", *manual.CPUSocket)
		assert.Equal(t, model.SourceManual, manual.Source)
		assert.InDelta(t, 1.00, manual.Confidence, 1e-9)

		// A later automatic extraction must not revert the manual edit.
		applied, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)
		assert.False(t, applied)

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "LGA1700", *got.CPUSocket)
		assert.Equal(t, model.SourceManual, got.Source)
	})

	t.Run("ForceReplacesManual", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)
		_, err = s.ApplyManualOverride(ctx, "p-1", map[string]any{"cpu_socket": "LGA1700"})
		require.NoError(t, err)

		applied, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), true)
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "AM5", *got.CPUSocket)
		assert.Equal(t, model.SourceSpecs, got.Source)
	})

	t.Run("ManualOverrideNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.ApplyManualOverride(context.Background(), "ghost", map[string]any{"cpu_socket": "AM5"})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("ManualOverrideNoPartialApply", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)

		// memory_type does not belong to a cpu record; the whole payload
		// is rejected and nothing changes.
		_, err = s.ApplyManualOverride(ctx, "p-1", map[string]any{
			"cpu_socket":  "LGA1700",
			"memory_type": "DDR5",
		})
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrInvalidPatch))

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "AM5", *got.CPUSocket)
		assert.Equal(t, model.SourceSpecs, got.Source)
	})

	t.Run("GetRecordNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRecord(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("ListRecordsByKind", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, rec := range []*model.CompatRecord{
			cpuRecord("cpu-1"), cpuRecord("cpu-2"), ramRecord("ram-1"),
		} {
			_, err := s.UpsertExtracted(ctx, rec, false)
			require.NoError(t, err)
		}

		all, err := s.ListRecords(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		cpus, err := s.ListRecords(ctx, ListFilter{Kind: model.KindCPU})
		require.NoError(t, err)
		assert.Len(t, cpus, 2)
		for _, r := range cpus {
			assert.Equal(t, model.KindCPU, r.Kind)
		}
	})

	t.Run("ListRecordsPaging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := s.UpsertExtracted(ctx, cpuRecord(id), false)
			require.NoError(t, err)
		}

		page1, err := s.ListRecords(ctx, ListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page1, 2)

		page2, err := s.ListRecords(ctx, ListFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, page2, 1)

		seen := map[string]bool{}
		for _, r := range append(page1, page2...) {
			seen[r.ProductID] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("ListRecordsEmpty", func(t *testing.T) {
		s := newStore(t)

		records, err := s.ListRecords(context.Background(), ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("ScanRecordsKeyset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, rec := range []*model.CompatRecord{
			cpuRecord("cpu-a"), cpuRecord("cpu-b"), cpuRecord("cpu-c"), ramRecord("ram-a"),
		} {
			_, err := s.UpsertExtracted(ctx, rec, false)
			require.NoError(t, err)
		}

		page1, err := s.ScanRecords(ctx, "", "", 2)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, "cpu-a", page1[0].ProductID)
		assert.Equal(t, "cpu-b", page1[1].ProductID)

		// A rewrite between page reads moves updated_at but not the scan
		// key, so the walk neither revisits nor skips records.
		rewritten := cpuRecord("cpu-a")
		rewritten.Confidence = 0.30
		_, err = s.UpsertExtracted(ctx, rewritten, false)
		require.NoError(t, err)

		page2, err := s.ScanRecords(ctx, "", page1[1].ProductID, 2)
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.Equal(t, "cpu-c", page2[0].ProductID)
		assert.Equal(t, "ram-a", page2[1].ProductID)

		page3, err := s.ScanRecords(ctx, "", page2[1].ProductID, 2)
		require.NoError(t, err)
		assert.Empty(t, page3)

		cpus, err := s.ScanRecords(ctx, model.KindCPU, "", 0)
		require.NoError(t, err)
		require.Len(t, cpus, 3)
		for _, r := range cpus {
			assert.Equal(t, model.KindCPU, r.Kind)
		}
	})

	t.Run("ReextractionPreservesExtractedAt", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)
		first, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)

		next := cpuRecord("p-1")
		next.Confidence = 0.70
		_, err = s.UpsertExtracted(ctx, next, false)
		require.NoError(t, err)

		got, err := s.GetRecord(ctx, "p-1")
		require.NoError(t, err)
		assert.InDelta(t, 0.70, got.Confidence, 1e-9)
		assert.True(t, got.ExtractedAt.Equal(first.ExtractedAt),
			"extracted_at should keep the first extraction time")
		assert.False(t, got.UpdatedAt.Before(first.UpdatedAt))
	})

	t.Run("CountByKind", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, rec := range []*model.CompatRecord{
			cpuRecord("cpu-1"), cpuRecord("cpu-2"), ramRecord("ram-1"),
		} {
			_, err := s.UpsertExtracted(ctx, rec, false)
			require.NoError(t, err)
		}

		counts, err := s.CountByKind(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[model.KindCPU])
		assert.Equal(t, 1, counts[model.KindRAM])
		assert.Zero(t, counts[model.KindMotherboard])
	})

	t.Run("DeleteRecord", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.UpsertExtracted(ctx, cpuRecord("p-1"), false)
		require.NoError(t, err)

		require.NoError(t, s.DeleteRecord(ctx, "p-1"))

		_, err = s.GetRecord(ctx, "p-1")
		assert.True(t, eris.Is(err, ErrNotFound))

		err = s.DeleteRecord(ctx, "p-1")
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("CreateAndCompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, RunStatusRunning, run.Status)
		assert.Equal(t, 10, run.Total)
		assert.False(t, run.StartedAt.IsZero())

		err = s.CompleteRun(ctx, run.ID, RunResult{
			Status: RunStatusComplete, Updated: 7, Skipped: 2, Failed: 1,
		})
		require.NoError(t, err)

		runs, err := s.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		got := runs[0]
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, RunStatusComplete, got.Status)
		assert.Equal(t, 7, got.Updated)
		assert.Equal(t, 2, got.Skipped)
		assert.Equal(t, 1, got.Failed)
		require.NotNil(t, got.FinishedAt)
	})

	t.Run("CompleteRunNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.CompleteRun(context.Background(), "nonexistent", RunResult{Status: RunStatusFailed})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("FailedRunKeepsError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, 3)
		require.NoError(t, err)
		err = s.CompleteRun(ctx, run.ID, RunResult{
			Status: RunStatusFailed, Failed: 3, Error: "context canceled",
		})
		require.NoError(t, err)

		last, err := s.LastRun(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, RunStatusFailed, last.Status)
		assert.Equal(t, "context canceled", last.Error)
	})

	t.Run("LastRunEmpty", func(t *testing.T) {
		s := newStore(t)

		last, err := s.LastRun(context.Background())
		require.NoError(t, err)
		assert.Nil(t, last)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
