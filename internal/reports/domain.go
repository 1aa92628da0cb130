package reports

import (
	"fmt"
	"time"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
)

// Range selects the reporting window, anchored at today.
type Range string

const (
	RangeDaily   Range = "daily"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
)

// Window resolves the range to a concrete [start, end] interval. Daily
// covers today, weekly the last 7 days, monthly the last 30.
func (r Range) Window(now time.Time) (start, end time.Time, err error) {
	end = now
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case RangeDaily:
		start = today
	case RangeWeekly:
		start = today.AddDate(0, 0, -6)
	case RangeMonthly:
		start = today.AddDate(0, 0, -29)
	default:
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return start, end, nil
}

// Row aggregates planned, produced and rejected quantities for one SKU.
type Row struct {
	SKU      string `json:"sku"`
	ItemName string `json:"item_name"`
	Planned  int64  `json:"planned"`
	Produced int64  `json:"produced"`
	Rejected int64  `json:"rejected"`
}

// ProductionReport is the per-SKU breakdown for a window plus totals.
type ProductionReport struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Rows   []Row     `json:"rows"`
	Totals Row       `json:"totals"`
}

// Summary condenses a window to headline numbers.
type Summary struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Produced      int64     `json:"produced"`
	Dispatched    int64     `json:"dispatched"`
	Rejected      int64     `json:"rejected"`
	RejectionRate float64   `json:"rejection_rate"`
}

var ErrInvalidRange = fmt.Errorf("%w: invalid range", httpx.ErrValidation)
