package calculation_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pct(s string) *entity.Rate {
	r := entity.Percent(dec(s))
	return &r
}

func buchaMatrices() entity.Matrices {
	return entity.Matrices{Version: "v1", Tables: []entity.RuleTable{{Name: "mva", Rows: []entity.RuleRow{
		{Code: "0903.00.91", UF: "AM", MVA: pct("70"), InternalRate: pct("18"), Applies: entity.ApplicabilityYes},
	}}}}
}

type fakeSource struct {
	mu       sync.Mutex
	matrices entity.Matrices
	err      error
	calls    int
}

func (f *fakeSource) LoadMatrices(ctx context.Context) (entity.Matrices, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return entity.Matrices{}, f.err
	}
	return f.matrices, nil
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]icmsst.Run
	err  error
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: map[string]icmsst.Run{}} }

func (f *fakeRuns) Create(ctx context.Context, run *icmsst.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) GetByID(ctx context.Context, id string) (*icmsst.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRuns) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]icmsst.Run, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []icmsst.Run
	for _, r := range f.runs {
		if r.CompanyID == companyID {
			r.Results = nil
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type fakeParser struct {
	doc *entity.NFeDocument
	err error
}

func (f fakeParser) Parse(xml []byte) (*entity.NFeDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.doc
	cp.Items = append([]entity.TaxItem(nil), f.doc.Items...)
	return &cp, nil
}

type fakePDF struct {
	items []calculation.MemoriaPDFItem
}

func (f *fakePDF) GenerateMemoriaPDF(run *icmsst.Run, items []calculation.MemoriaPDFItem) ([]byte, error) {
	f.items = items
	return []byte("%PDF-fake"), nil
}

type fakeTables struct {
	replaced []entity.RuleTable
	err      error
}

func (f *fakeTables) ReplaceTable(ctx context.Context, t entity.RuleTable) error {
	if f.err != nil {
		return f.err
	}
	f.replaced = append(f.replaced, t)
	return nil
}

var errBoom = errors.New("boom")
