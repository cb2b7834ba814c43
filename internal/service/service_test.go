package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/catalog"
	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/database/dbtest"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/queue"
	"github.com/iliyamo/neststay/internal/repository"
	"github.com/iliyamo/neststay/internal/service"
)

var today = time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) queues() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Queue)
	}
	return out
}

type env struct {
	db        *database.DB
	fx        dbtest.Fixture
	inventory *repository.InventoryRepo
	bookings  *repository.BookingRepo
	avail     *service.Availability
	coord     *service.Coordinator
	auditor   *service.Auditor
	events    *recordingPublisher
}

func newEnv(t *testing.T, totalInventory int, opts ...service.Option) *env {
	t.Helper()
	db := dbtest.New(t)
	e := &env{
		db:        db,
		fx:        dbtest.Seed(t, db, totalInventory),
		inventory: repository.NewInventoryRepo(db),
		bookings:  repository.NewBookingRepo(db),
		events:    &recordingPublisher{},
	}
	cat := catalog.NewSQL(repository.NewRoomTypeRepo(db))
	e.avail = service.NewAvailability(cat, e.inventory)
	opts = append([]service.Option{
		service.WithClock(fixedClock),
		service.WithEvents(e.events),
		service.WithLogger(zap.NewNop()),
	}, opts...)
	e.coord = service.NewCoordinator(db, cat, e.inventory, e.bookings, opts...)
	e.auditor = service.NewAuditor(e.inventory, e.bookings, zap.NewNop())
	return e
}

func date(s string) model.Date { return model.MustParseDate(s) }

func (e *env) request(from, to string, rooms int) service.CreateRequest {
	return service.CreateRequest{
		RoomTypeID: e.fx.RoomType.ID,
		CheckIn:    date(from),
		CheckOut:   date(to),
		NumRooms:   rooms,
		NumGuests:  rooms,
	}
}

// booked returns booked_units per night of [from, to), 0 for missing rows.
func (e *env) booked(t *testing.T, from, to string) []int {
	t.Helper()
	r := model.DateRange{Start: date(from), End: date(to)}
	rows, err := e.inventory.ListRange(context.Background(), e.fx.RoomType.ID, r)
	require.NoError(t, err)
	byDate := map[model.Date]int{}
	for _, row := range rows {
		byDate[row.Date] = row.BookedUnits
	}
	out := make([]int, 0, r.Nights())
	for _, d := range r.Dates() {
		out = append(out, byDate[d])
	}
	return out
}

func (e *env) requireAuditClean(t *testing.T) {
	t.Helper()
	report, err := e.auditor.Audit(context.Background(), 0, model.Date{}, model.Date{})
	require.NoError(t, err)
	require.True(t, report.OK(), "%v", report.Discrepancies)
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *service.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	require.Equal(t, field, ve.Field)
}

func ledgerAll() repository.LedgerFilter { return repository.LedgerFilter{} }
