package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryReportRepo struct {
	planned  []SKUTotal
	produced []SKUTotal
	rejected []SKUTotal

	dispatchedTotal int64
	rejectedTotal   int64
	producedTotal   int64

	lastStart time.Time
	lastEnd   time.Time
}

func (m *memoryReportRepo) PlannedBySKU(_ context.Context, start, end time.Time) ([]SKUTotal, error) {
	m.lastStart, m.lastEnd = start, end
	return m.planned, nil
}

func (m *memoryReportRepo) ProducedBySKU(_ context.Context, start, end time.Time) ([]SKUTotal, error) {
	m.lastStart, m.lastEnd = start, end
	return m.produced, nil
}

func (m *memoryReportRepo) RejectedBySKU(_ context.Context, start, end time.Time) ([]SKUTotal, error) {
	m.lastStart, m.lastEnd = start, end
	return m.rejected, nil
}

func (m *memoryReportRepo) DispatchTotals(_ context.Context, start, end time.Time) (int64, int64, error) {
	m.lastStart, m.lastEnd = start, end
	return m.dispatchedTotal, m.rejectedTotal, nil
}

func (m *memoryReportRepo) ProducedTotal(_ context.Context, start, end time.Time) (int64, error) {
	m.lastStart, m.lastEnd = start, end
	return m.producedTotal, nil
}

var reportNow = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)

func newReportService(repo *memoryReportRepo) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return reportNow }
	return svc
}

func TestWindowBounds(t *testing.T) {
	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	start, end, err := RangeDaily.Window(reportNow)
	require.NoError(t, err)
	require.Equal(t, midnight, start)
	require.Equal(t, reportNow, end)

	start, _, err = RangeWeekly.Window(reportNow)
	require.NoError(t, err)
	require.Equal(t, midnight.AddDate(0, 0, -6), start)

	start, _, err = RangeMonthly.Window(reportNow)
	require.NoError(t, err)
	require.Equal(t, midnight.AddDate(0, 0, -29), start)

	_, _, err = Range("yearly").Window(reportNow)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestProductionMergesSKUs(t *testing.T) {
	repo := &memoryReportRepo{
		planned: []SKUTotal{
			{SKU: "WID-002", ItemName: "Widget B", Qty: 30},
			{SKU: "WID-001", ItemName: "Widget A", Qty: 10},
		},
		produced: []SKUTotal{
			{SKU: "WID-001", ItemName: "Widget A", Qty: 7},
		},
		rejected: []SKUTotal{
			{SKU: "WID-001", ItemName: "", Qty: 2},
			{SKU: "BRK-100", ItemName: "Bracket", Qty: 1},
		},
	}
	svc := newReportService(repo)

	report, err := svc.Production(context.Background(), RangeWeekly)
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	require.Equal(t, []Row{
		{SKU: "BRK-100", ItemName: "Bracket", Rejected: 1},
		{SKU: "WID-001", ItemName: "Widget A", Planned: 10, Produced: 7, Rejected: 2},
		{SKU: "WID-002", ItemName: "Widget B", Planned: 30},
	}, report.Rows)

	require.Equal(t, Row{SKU: "TOTAL", Planned: 40, Produced: 7, Rejected: 3}, report.Totals)
	require.Equal(t, report.Start, repo.lastStart)
	require.Equal(t, reportNow, report.End)
}

func TestProductionRejectsUnknownRange(t *testing.T) {
	svc := newReportService(&memoryReportRepo{})

	_, err := svc.Production(context.Background(), Range("hourly"))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestSummaryComputesRejectionRate(t *testing.T) {
	repo := &memoryReportRepo{
		producedTotal:   120,
		dispatchedTotal: 90,
		rejectedTotal:   7,
	}
	svc := newReportService(repo)

	summary, err := svc.Summary(context.Background(), RangeMonthly)
	require.NoError(t, err)
	require.Equal(t, int64(120), summary.Produced)
	require.Equal(t, int64(90), summary.Dispatched)
	require.Equal(t, int64(7), summary.Rejected)
	require.InDelta(t, 7.78, summary.RejectionRate, 0.001)
}

func TestSummaryZeroDispatches(t *testing.T) {
	svc := newReportService(&memoryReportRepo{producedTotal: 5})

	summary, err := svc.Summary(context.Background(), RangeWeekly)
	require.NoError(t, err)
	require.Zero(t, summary.RejectionRate)
}

func TestSummaryRejectsDailyRange(t *testing.T) {
	svc := newReportService(&memoryReportRepo{})

	_, err := svc.Summary(context.Background(), RangeDaily)
	require.ErrorIs(t, err, ErrInvalidRange)
}
