// Package resolver answers "what fits with this part" queries over the
// compatibility record store. It is stateless; every call evaluates against
// the records as committed at that moment.
package resolver

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

// Mode selects the strictness policy for a resolve call.
type Mode string

const (
	// ModeStrict admits only candidates whose gating attribute matches
	// and whose extraction confidence clears ConfidenceFloor.
	ModeStrict Mode = "strict"
	// ModeLenient admits any exact attribute match and surfaces records
	// with an unset gating attribute as unknown.
	ModeLenient Mode = "lenient"
)

// ConfidenceFloor is the minimum extraction confidence a candidate needs
// to be asserted as compatible under strict mode.
const ConfidenceFloor = 0.70

// ParseMode validates a mode string. Empty defaults to strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeStrict, nil
	case ModeStrict, ModeLenient:
		return Mode(s), nil
	}
	return "", eris.Errorf("resolver: unknown mode %q", s)
}

// ErrCannotResolve marks a pivot that has no record or whose record lacks
// the gating attribute. Distinct from legitimately empty result sets.
var ErrCannotResolve = eris.New("resolver: pivot has no usable record")

// ErrUnsupportedPivot marks a pivot kind the resolver cannot search from.
var ErrUnsupportedPivot = eris.New("resolver: unsupported pivot kind")

// Candidate is one product in a result partition. ExceedsRatedSpeed is
// advisory: the RAM kit is faster than the board's rated maximum and will
// run downclocked.
type Candidate struct {
	ProductID         string `json:"product_id"`
	ExceedsRatedSpeed bool   `json:"exceeds_rated_speed,omitempty"`
}

// Result partitions the target catalog for one resolve call. A product id
// never appears in both partitions.
type Result struct {
	PivotID    string              `json:"pivot_product_id"`
	PivotKind  model.ComponentKind `json:"pivot_kind"`
	TargetKind model.ComponentKind `json:"target_kind"`
	Mode       Mode                `json:"mode"`
	Compatible []Candidate         `json:"compatible"`
	Unknown    []Candidate         `json:"unknown"`
}

// Resolver evaluates compatibility queries against a record store.
type Resolver struct {
	store store.Store
}

func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve partitions the adjacent component category for the pivot product.
// CPU pivots search motherboards on socket equality; motherboard pivots
// search RAM on memory-type equality. RAM pivots are not supported.
func (r *Resolver) Resolve(ctx context.Context, pivotID string, mode Mode) (*Result, error) {
	pivot, err := r.store.GetRecord(ctx, pivotID)
	if eris.Is(err, store.ErrNotFound) {
		return nil, eris.Wrapf(ErrCannotResolve, "no record for %s", pivotID)
	}
	if err != nil {
		return nil, err
	}

	switch pivot.Kind {
	case model.KindCPU:
		return r.resolveCPU(ctx, pivot, mode)
	case model.KindMotherboard:
		return r.resolveMobo(ctx, pivot, mode)
	case model.KindRAM:
		return nil, eris.Wrapf(ErrUnsupportedPivot, "ram pivot %s", pivotID)
	}
	return nil, eris.Wrapf(ErrUnsupportedPivot, "kind %q", pivot.Kind)
}

func (r *Resolver) resolveCPU(ctx context.Context, pivot *model.CompatRecord, mode Mode) (*Result, error) {
	if pivot.CPUSocket == nil {
		return nil, eris.Wrapf(ErrCannotResolve, "cpu %s has no socket", pivot.ProductID)
	}
	res := newResult(pivot, model.KindMotherboard, mode)

	err := r.scan(ctx, model.KindMotherboard, func(cand *model.CompatRecord) {
		if cand.MoboSocket == nil {
			if mode == ModeLenient {
				res.Unknown = append(res.Unknown, Candidate{ProductID: cand.ProductID})
			}
			return
		}
		if *cand.MoboSocket != *pivot.CPUSocket {
			return
		}
		c := Candidate{ProductID: cand.ProductID}
		if mode == ModeStrict && cand.Confidence < ConfidenceFloor {
			res.Unknown = append(res.Unknown, c)
			return
		}
		res.Compatible = append(res.Compatible, c)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) resolveMobo(ctx context.Context, pivot *model.CompatRecord, mode Mode) (*Result, error) {
	if pivot.MemoryType == nil {
		return nil, eris.Wrapf(ErrCannotResolve, "motherboard %s has no memory type", pivot.ProductID)
	}
	res := newResult(pivot, model.KindRAM, mode)

	err := r.scan(ctx, model.KindRAM, func(cand *model.CompatRecord) {
		if cand.MemoryType == nil {
			if mode == ModeLenient {
				res.Unknown = append(res.Unknown, Candidate{ProductID: cand.ProductID})
			}
			return
		}
		if *cand.MemoryType != *pivot.MemoryType {
			return
		}
		c := Candidate{ProductID: cand.ProductID}
		// Speed is informational. A faster kit still runs, downclocked
		// to the board's rated maximum.
		if pivot.MemoryMaxSpeedMHz != nil && cand.MemoryMaxSpeedMHz != nil &&
			*cand.MemoryMaxSpeedMHz > *pivot.MemoryMaxSpeedMHz {
			c.ExceedsRatedSpeed = true
		}
		if mode == ModeStrict && cand.Confidence < ConfidenceFloor {
			res.Unknown = append(res.Unknown, c)
			return
		}
		res.Compatible = append(res.Compatible, c)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func newResult(pivot *model.CompatRecord, target model.ComponentKind, mode Mode) *Result {
	return &Result{
		PivotID:    pivot.ProductID,
		PivotKind:  pivot.Kind,
		TargetKind: target,
		Mode:       mode,
		Compatible: []Candidate{},
		Unknown:    []Candidate{},
	}
}

const scanPageSize = 500

// scan walks every record of the kind with keyset paging on product_id.
// The key never changes, so a record rewritten between page reads is
// still visited exactly once and the result partitions stay disjoint.
func (r *Resolver) scan(ctx context.Context, kind model.ComponentKind, fn func(*model.CompatRecord)) error {
	afterID := ""
	for {
		page, err := r.store.ScanRecords(ctx, kind, afterID, scanPageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for i := range page {
			fn(&page[i])
		}
		afterID = page[len(page)-1].ProductID
	}
}
