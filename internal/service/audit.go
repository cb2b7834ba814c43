package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/metrics"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
)

// Discrepancy kinds reported by the auditor.
const (
	KindMismatch     = "mismatch"
	KindOverCapacity = "over_capacity"
	KindNegative     = "negative"
	KindMissingRow   = "missing_row"
)

// Discrepancy is one ledger row that disagrees with the bookings.
// Expected is the sum of num_rooms over inventory-holding bookings that
// cover the night.
type Discrepancy struct {
	RoomTypeID  uint64     `json:"room_type_id"`
	Date        model.Date `json:"date"`
	BookedUnits int        `json:"booked_units"`
	TotalUnits  int        `json:"total_units"`
	Expected    int        `json:"expected"`
	Kind        string     `json:"kind"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s room_type=%d date=%s booked=%d total=%d expected=%d",
		d.Kind, d.RoomTypeID, d.Date, d.BookedUnits, d.TotalUnits, d.Expected)
}

// AuditReport is the result of one audit run.
type AuditReport struct {
	RowsChecked     int           `json:"rows_checked"`
	BookingsChecked int           `json:"bookings_checked"`
	Discrepancies   []Discrepancy `json:"discrepancies"`
}

// OK reports whether the ledger matched the bookings.
func (r *AuditReport) OK() bool { return len(r.Discrepancies) == 0 }

// Auditor recomputes booked_units from the bookings table and compares
// it with the ledger.  It reads without locks, so it should run while
// no bookings are being written for the audited range.
type Auditor struct {
	inventory *repository.InventoryRepo
	bookings  *repository.BookingRepo
	log       *zap.Logger
}

func NewAuditor(inventory *repository.InventoryRepo, bookings *repository.BookingRepo, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{inventory: inventory, bookings: bookings, log: log}
}

type ledgerKey struct {
	roomTypeID uint64
	date       model.Date
}

// Audit checks every ledger row of roomTypeID (0 for all room types) in
// [from, to).  Zero dates leave that side unbounded.
func (a *Auditor) Audit(ctx context.Context, roomTypeID uint64, from, to model.Date) (*AuditReport, error) {
	f := repository.LedgerFilter{RoomTypeID: roomTypeID, From: from, To: to}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, invalid("to", "to must be after from")
	}

	rows, err := a.inventory.ListLedger(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	bookings, err := a.bookings.ListHolding(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}

	expected := make(map[ledgerKey]int)
	for _, b := range bookings {
		for _, d := range b.Stay().Dates() {
			if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && !d.Before(to)) {
				continue
			}
			expected[ledgerKey{b.RoomTypeID, d}] += b.NumRooms
		}
	}

	report := &AuditReport{RowsChecked: len(rows), BookingsChecked: len(bookings), Discrepancies: []Discrepancy{}}
	for _, r := range rows {
		key := ledgerKey{r.RoomTypeID, r.Date}
		want := expected[key]
		delete(expected, key)

		d := Discrepancy{RoomTypeID: r.RoomTypeID, Date: r.Date, BookedUnits: r.BookedUnits, TotalUnits: r.TotalUnits, Expected: want}
		switch {
		case r.BookedUnits < 0:
			d.Kind = KindNegative
		case r.BookedUnits > r.TotalUnits:
			d.Kind = KindOverCapacity
		case r.BookedUnits != want:
			d.Kind = KindMismatch
		default:
			continue
		}
		report.Discrepancies = append(report.Discrepancies, d)
	}
	for key, want := range expected {
		if want == 0 {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			RoomTypeID: key.roomTypeID, Date: key.date, Expected: want, Kind: KindMissingRow,
		})
	}
	sortDiscrepancies(report.Discrepancies)

	for _, d := range report.Discrepancies {
		metrics.LedgerInvariantViolations.WithLabelValues(d.Kind).Inc()
		a.log.Error("ledger discrepancy", zap.String("kind", d.Kind), zap.Uint64("room_type_id", d.RoomTypeID),
			zap.Stringer("date", d.Date), zap.Int("booked_units", d.BookedUnits), zap.Int("expected", d.Expected))
	}
	return report, nil
}

func sortDiscrepancies(ds []Discrepancy) {
	slices.SortFunc(ds, func(a, b Discrepancy) int {
		if a.RoomTypeID != b.RoomTypeID {
			return cmp.Compare(a.RoomTypeID, b.RoomTypeID)
		}
		return a.Date.Time().Compare(b.Date.Time())
	})
}
