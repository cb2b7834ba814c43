package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/service"
)

func TestAuditDetectsTampering(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	_, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-04", 2))
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.OtherGuest, e.request("2026-03-02", "2026-03-03", 1))
	require.NoError(t, err)
	e.requireAuditClean(t)

	_, err = e.db.ExecContext(ctx, `UPDATE inventory_rows SET booked_units = 1 WHERE date = '2026-03-02'`)
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `DELETE FROM inventory_rows WHERE date = '2026-03-03'`)
	require.NoError(t, err)

	report, err := e.auditor.Audit(ctx, e.fx.RoomType.ID, model.Date{}, model.Date{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.RowsChecked)
	assert.Equal(t, 2, report.BookingsChecked)
	require.Len(t, report.Discrepancies, 2)

	mismatch := report.Discrepancies[0]
	assert.Equal(t, service.KindMismatch, mismatch.Kind)
	assert.Equal(t, "2026-03-02", mismatch.Date.String())
	assert.Equal(t, 1, mismatch.BookedUnits)
	assert.Equal(t, 3, mismatch.Expected)

	missing := report.Discrepancies[1]
	assert.Equal(t, service.KindMissingRow, missing.Kind)
	assert.Equal(t, "2026-03-03", missing.Date.String())
	assert.Equal(t, 2, missing.Expected)
	assert.Contains(t, missing.String(), "missing_row")
}

func TestAuditWindowAndCancelledBookings(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	b, err := e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-01", "2026-03-05", 1))
	require.NoError(t, err)
	_, err = e.coord.Cancel(ctx, b.Reference, e.fx.GuestID, "")
	require.NoError(t, err)
	_, err = e.coord.Create(ctx, e.fx.GuestID, e.request("2026-03-03", "2026-03-06", 1))
	require.NoError(t, err)

	// Only the window's nights are compared.
	_, err = e.db.ExecContext(ctx, `UPDATE inventory_rows SET booked_units = 0 WHERE date = '2026-03-05'`)
	require.NoError(t, err)

	report, err := e.auditor.Audit(ctx, 0, date("2026-03-01"), date("2026-03-05"))
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Discrepancies)
	assert.Equal(t, 4, report.RowsChecked)

	report, err = e.auditor.Audit(ctx, 0, date("2026-03-05"), date("2026-03-06"))
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, service.KindMismatch, report.Discrepancies[0].Kind)

	_, err = e.auditor.Audit(ctx, 0, date("2026-03-05"), date("2026-03-05"))
	requireValidation(t, err, "to")
}
