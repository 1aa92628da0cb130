package reports

import (
	"context"
	"math"
	"sort"
	"time"
)

// RepositoryPort abstracts the report aggregates.
type RepositoryPort interface {
	PlannedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error)
	ProducedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error)
	RejectedBySKU(ctx context.Context, start, end time.Time) ([]SKUTotal, error)
	DispatchTotals(ctx context.Context, start, end time.Time) (dispatched, rejected int64, err error)
	ProducedTotal(ctx context.Context, start, end time.Time) (int64, error)
}

// Service assembles production reports.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Production builds the per-SKU planned/produced/rejected breakdown for
// the window.
func (s *Service) Production(ctx context.Context, rng Range) (ProductionReport, error) {
	start, end, err := rng.Window(s.now())
	if err != nil {
		return ProductionReport{}, err
	}

	planned, err := s.repo.PlannedBySKU(ctx, start, end)
	if err != nil {
		return ProductionReport{}, err
	}
	produced, err := s.repo.ProducedBySKU(ctx, start, end)
	if err != nil {
		return ProductionReport{}, err
	}
	rejected, err := s.repo.RejectedBySKU(ctx, start, end)
	if err != nil {
		return ProductionReport{}, err
	}

	bySKU := map[string]*Row{}
	row := func(t SKUTotal) *Row {
		r, ok := bySKU[t.SKU]
		if !ok {
			r = &Row{SKU: t.SKU}
			bySKU[t.SKU] = r
		}
		if r.ItemName == "" {
			r.ItemName = t.ItemName
		}
		return r
	}
	for _, t := range planned {
		row(t).Planned += t.Qty
	}
	for _, t := range produced {
		row(t).Produced += t.Qty
	}
	for _, t := range rejected {
		row(t).Rejected += t.Qty
	}

	skus := make([]string, 0, len(bySKU))
	for sku := range bySKU {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	report := ProductionReport{
		Start:  start,
		End:    end,
		Rows:   make([]Row, 0, len(skus)),
		Totals: Row{SKU: "TOTAL"},
	}
	for _, sku := range skus {
		r := *bySKU[sku]
		report.Totals.Planned += r.Planned
		report.Totals.Produced += r.Produced
		report.Totals.Rejected += r.Rejected
		report.Rows = append(report.Rows, r)
	}
	return report, nil
}

// Summary condenses the window to produced, dispatched, rejected and the
// rejection rate.
func (s *Service) Summary(ctx context.Context, rng Range) (Summary, error) {
	if rng != RangeWeekly && rng != RangeMonthly {
		return Summary{}, ErrInvalidRange
	}
	start, end, err := rng.Window(s.now())
	if err != nil {
		return Summary{}, err
	}

	produced, err := s.repo.ProducedTotal(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	dispatched, rejected, err := s.repo.DispatchTotals(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}

	var rate float64
	if dispatched > 0 {
		rate = math.Round(float64(rejected)/float64(dispatched)*100*100) / 100
	}
	return Summary{
		Start:         start,
		End:           end,
		Produced:      produced,
		Dispatched:    dispatched,
		Rejected:      rejected,
		RejectionRate: rate,
	}, nil
}
