package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

// InventoryRepo is the inventory ledger: one row per (room type, night)
// holding total_units and booked_units.  Rows are created lazily and
// never deleted.  Every mutating method runs inside the caller's
// transaction; the caller commits or rolls back.
type InventoryRepo struct {
	db *database.DB
}

func NewInventoryRepo(db *database.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *InventoryRepo) DB() *database.DB { return r.db }

const inventoryColumns = `id, room_type_id, date, total_units, booked_units`

// EnsureRowsExistTx materializes a row with booked_units = 0 for every
// night of stay that has none yet.  Existing rows are left untouched,
// including their total_units.  Concurrent callers racing on the same
// night are resolved by the (room_type_id, date) unique key: the losing
// insert is ignored.  It returns the number of rows it created.
func (r *InventoryRepo) EnsureRowsExistTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, stay model.DateRange, totalUnits int) (int, error) {
	if stay.Empty() {
		return 0, nil
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT date FROM inventory_rows WHERE room_type_id = ? AND date >= ? AND date < ?`,
		roomTypeID, stay.Start, stay.End)
	if err != nil {
		return 0, err
	}
	existing := make(map[model.Date]struct{})
	for rows.Next() {
		var d model.Date
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return 0, err
		}
		existing[d] = struct{}{}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	var missing []model.Date
	for _, d := range stay.Dates() {
		if _, ok := existing[d]; !ok {
			missing = append(missing, d)
		}
	}
	created := 0
	for len(missing) > 0 {
		batch := missing[:min(len(missing), ensureBatchSize)]
		missing = missing[len(batch):]
		n, err := r.insertRowsTx(ctx, tx, roomTypeID, batch, totalUnits)
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

// ensureBatchSize bounds the rows per INSERT, well under the
// placeholder limits of both drivers.
const ensureBatchSize = 500

func (r *InventoryRepo) insertRowsTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, dates []model.Date, totalUnits int) (int, error) {
	query := r.db.Dialect.InsertIgnore + ` inventory_rows (room_type_id, date, total_units, booked_units) VALUES ` +
		strings.TrimSuffix(strings.Repeat("(?, ?, ?, 0),", len(dates)), ",")
	args := make([]any, 0, len(dates)*3)
	for _, d := range dates {
		args = append(args, roomTypeID, d, totalUnits)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert inventory rows: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(created), nil
}

// EnsureRowsExist is EnsureRowsExistTx in a transaction of its own.
func (r *InventoryRepo) EnsureRowsExist(ctx context.Context, roomTypeID uint64, stay model.DateRange, totalUnits int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	n, err := r.EnsureRowsExistTx(ctx, tx, roomTypeID, stay, totalUnits)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// LockRowsForRangeTx takes exclusive row locks on the ledger rows of stay
// and returns their current counters ordered by date.  Locks are always
// acquired in date order, so two bookings over overlapping ranges cannot
// deadlock on each other.  Only the requested rows are locked.  On a
// store without row locks this is a plain read.
func (r *InventoryRepo) LockRowsForRangeTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, stay model.DateRange) ([]model.InventoryRow, error) {
	q := `SELECT ` + inventoryColumns + ` FROM inventory_rows
	      WHERE room_type_id = ? AND date >= ? AND date < ?
	      ORDER BY date` + r.db.Dialect.ForUpdate
	rows, err := tx.QueryContext(ctx, q, roomTypeID, stay.Start, stay.End)
	if err != nil {
		return nil, err
	}
	return scanInventoryRows(rows)
}

// IncrementBookedTx adds count to booked_units of every given row.  It
// fails with ErrCapacityExceeded when any row would go above total_units;
// nothing is clamped.
func (r *InventoryRepo) IncrementBookedTx(ctx context.Context, tx *sql.Tx, rows []model.InventoryRow, count int) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]any, 0, len(rows)+2)
	ids = append(ids, count, count)
	for _, row := range rows {
		if row.BookedUnits+count > row.TotalUnits {
			return fmt.Errorf("%w: room type %d on %s", ErrCapacityExceeded, row.RoomTypeID, row.Date)
		}
		ids = append(ids, row.ID)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_rows SET booked_units = booked_units + ?
		 WHERE booked_units + ? <= total_units AND id IN (`+placeholders(len(rows))+`)`,
		ids...)
	if err != nil {
		if database.IsCheckViolation(err) {
			return fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(rows) {
		return fmt.Errorf("%w: %d of %d rows had room", ErrCapacityExceeded, n, len(rows))
	}
	return nil
}

// DecrementBookedTx subtracts count from booked_units on every night of
// stay.  If any night lacks a row or holds fewer than count units the
// ledger no longer matches the bookings; it returns ErrInventoryCorruption
// and the caller must roll back.
func (r *InventoryRepo) DecrementBookedTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, stay model.DateRange, count int) error {
	if stay.Empty() || count <= 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_rows SET booked_units = booked_units - ?
		 WHERE room_type_id = ? AND date >= ? AND date < ? AND booked_units >= ?`,
		count, roomTypeID, stay.Start, stay.End, count)
	if err != nil {
		if database.IsCheckViolation(err) {
			return fmt.Errorf("%w: %v", ErrInventoryCorruption, err)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != stay.Nights() {
		return fmt.Errorf("%w: room type %d %s: released %d of %d nights",
			ErrInventoryCorruption, roomTypeID, stay, n, stay.Nights())
	}
	return nil
}

// ListRange reads the ledger rows of stay without locking.  Nights that
// were never materialized are simply absent.
func (r *InventoryRepo) ListRange(ctx context.Context, roomTypeID uint64, stay model.DateRange) ([]model.InventoryRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_rows
		 WHERE room_type_id = ? AND date >= ? AND date < ? ORDER BY date`,
		roomTypeID, stay.Start, stay.End)
	if err != nil {
		return nil, err
	}
	return scanInventoryRows(rows)
}

// LedgerFilter narrows ListLedger.  Zero values mean "no bound".
type LedgerFilter struct {
	RoomTypeID uint64
	From       model.Date // inclusive
	To         model.Date // exclusive
}

// ListLedger returns ledger rows matching f, ordered by room type and date.
func (r *InventoryRepo) ListLedger(ctx context.Context, f LedgerFilter) ([]model.InventoryRow, error) {
	q := `SELECT ` + inventoryColumns + ` FROM inventory_rows WHERE 1=1`
	var args []any
	if f.RoomTypeID != 0 {
		q += ` AND room_type_id = ?`
		args = append(args, f.RoomTypeID)
	}
	if !f.From.IsZero() {
		q += ` AND date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		q += ` AND date < ?`
		args = append(args, f.To)
	}
	q += ` ORDER BY room_type_id, date`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanInventoryRows(rows)
}

func scanInventoryRows(rows *sql.Rows) ([]model.InventoryRow, error) {
	defer rows.Close()
	var out []model.InventoryRow
	for rows.Next() {
		var row model.InventoryRow
		if err := rows.Scan(&row.ID, &row.RoomTypeID, &row.Date, &row.TotalUnits, &row.BookedUnits); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
