package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/catalog"
	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/metrics"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/queue"
	"github.com/iliyamo/neststay/internal/repository"
)

// EventPublisher receives booking events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Coordinator is the only component that changes ledger counters or
// booking status.  Create runs ensure-rows, lock, verify, increment and
// insert in one transaction; the status transitions that release rooms
// lock the same rows before decrementing.
type Coordinator struct {
	db        *database.DB
	catalog   Catalog
	inventory *repository.InventoryRepo
	bookings  *repository.BookingRepo

	events      EventPublisher
	log         *zap.Logger
	now         func() time.Time
	lockTimeout time.Duration
}

type Option func(*Coordinator)

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithLockTimeout bounds how long Create waits for ledger row locks.
func WithLockTimeout(d time.Duration) Option { return func(c *Coordinator) { c.lockTimeout = d } }

func WithEvents(p EventPublisher) Option { return func(c *Coordinator) { c.events = p } }

func WithLogger(log *zap.Logger) Option { return func(c *Coordinator) { c.log = log } }

func NewCoordinator(db *database.DB, c Catalog, inventory *repository.InventoryRepo, bookings *repository.BookingRepo, opts ...Option) *Coordinator {
	co := &Coordinator{
		db:          db,
		catalog:     c,
		inventory:   inventory,
		bookings:    bookings,
		events:      queue.NopPublisher{},
		log:         zap.NewNop(),
		now:         time.Now,
		lockTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// CreateRequest is a guest's booking request.
type CreateRequest struct {
	RoomTypeID      uint64     `json:"room_type_id"`
	CheckIn         model.Date `json:"check_in"`
	CheckOut        model.Date `json:"check_out"`
	NumRooms        int        `json:"num_rooms"`
	NumGuests       int        `json:"num_guests"`
	SpecialRequests string     `json:"special_requests"`
}

func (c *Coordinator) today() model.Date { return model.DateOf(c.now().UTC()) }

// Create books req.NumRooms rooms on every night of the stay for guestID
// and returns the CONFIRMED booking.  It fails with a *ValidationError
// for bad requests, ErrRoomTypeNotFound, or ErrInsufficientInventory when
// any night lacks room or the row locks could not be taken in time.
// Nothing is written unless everything is.
func (c *Coordinator) Create(ctx context.Context, guestID uint64, req CreateRequest) (*model.Booking, error) {
	b, err := c.create(ctx, guestID, req)
	switch {
	case err == nil:
		metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	case errors.Is(err, ErrInsufficientInventory):
		metrics.BookingsTotal.WithLabelValues("insufficient_inventory").Inc()
	case IsValidation(err), errors.Is(err, ErrRoomTypeNotFound):
		metrics.BookingsTotal.WithLabelValues("validation").Inc()
	default:
		metrics.BookingsTotal.WithLabelValues("error").Inc()
	}
	return b, err
}

func (c *Coordinator) create(ctx context.Context, guestID uint64, req CreateRequest) (*model.Booking, error) {
	stay := model.DateRange{Start: req.CheckIn, End: req.CheckOut}
	if guestID == 0 {
		return nil, invalid("guest_id", "is required")
	}
	if err := validateQuery(stay, req.NumRooms); err != nil {
		return nil, err
	}
	if req.NumGuests < 1 {
		return nil, invalid("num_guests", "must be at least 1")
	}

	// Catalog data is read before the transaction so no lock is held
	// across a possibly remote call.
	rt, err := c.catalog.RoomType(ctx, req.RoomTypeID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrRoomTypeNotFound
		}
		return nil, fmt.Errorf("load room type: %w", err)
	}
	if err := c.validateStay(rt, stay, req); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := c.inventory.EnsureRowsExistTx(ctx, tx, rt.ID, stay, rt.TotalInventory); err != nil {
		return nil, c.lockErr(ctx, "ensure ledger rows", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	started := time.Now()
	rows, err := c.inventory.LockRowsForRangeTx(lockCtx, tx, rt.ID, stay)
	metrics.LedgerLockWait.Observe(time.Since(started).Seconds())
	cancel()
	if err != nil {
		return nil, c.lockErr(ctx, "lock ledger rows", err)
	}
	if len(rows) != stay.Nights() {
		return nil, fmt.Errorf("ledger for room type %d %s has %d of %d rows", rt.ID, stay, len(rows), stay.Nights())
	}

	if free := MinFree(rows, stay, rt.TotalInventory); free < req.NumRooms {
		return nil, fmt.Errorf("%w: %d requested, %d free on the fullest night", ErrInsufficientInventory, req.NumRooms, free)
	}
	if err := c.inventory.IncrementBookedTx(ctx, tx, rows, req.NumRooms); err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			c.invariantViolated("capacity_exceeded", rt.ID, stay, err)
		}
		return nil, err
	}

	now := c.now().UTC()
	nights := stay.Nights()
	b := &model.Booking{
		Reference:     uuid.NewString(),
		GuestID:       guestID,
		RoomTypeID:    rt.ID,
		LocationID:    rt.LocationID,
		HotelID:       rt.HotelID,
		CheckIn:       stay.Start,
		CheckOut:      stay.End,
		NumRooms:      req.NumRooms,
		NumGuests:     req.NumGuests,
		NightCount:    nights,
		PricePerNight: rt.BasePrice,
		TotalPrice:    rt.BasePrice.Mul(decimal.NewFromInt(int64(nights * req.NumRooms))).Round(2),
		Status:        model.BookingConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s := strings.TrimSpace(req.SpecialRequests); s != "" {
		b.SpecialRequests = &s
	}
	if err := c.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, c.lockErr(ctx, "commit", err)
	}
	committed = true

	c.log.Info("booking confirmed",
		zap.String("reference", b.Reference), zap.Uint64("guest_id", guestID), zap.Uint64("room_type_id", rt.ID),
		zap.Stringer("stay", stay), zap.Int("num_rooms", b.NumRooms), zap.String("total_price", b.TotalPrice.StringFixed(2)))
	c.publish(ctx, b)
	return b, nil
}

func (c *Coordinator) validateStay(rt *model.RoomType, stay model.DateRange, req CreateRequest) error {
	if !rt.IsActive {
		return invalid("room_type_id", "room type is not bookable")
	}
	minStay := rt.MinStay
	if minStay < 1 {
		minStay = 1
	}
	if stay.Nights() < minStay {
		return invalid("check_out", fmt.Sprintf("stay must be at least %d nights", minStay))
	}
	today := c.today()
	if stay.Start.Before(today) {
		return invalid("check_in", "check_in is in the past")
	}
	if rt.MaxAdvanceDays > 0 && stay.Start.After(today.AddDays(rt.MaxAdvanceDays)) {
		return invalid("check_in", fmt.Sprintf("check_in is more than %d days ahead", rt.MaxAdvanceDays))
	}
	if rt.MaxOccupancy > 0 && req.NumGuests > req.NumRooms*rt.MaxOccupancy {
		return invalid("num_guests", fmt.Sprintf("at most %d guests per room", rt.MaxOccupancy))
	}
	return nil
}

// lockErr maps lock-wait timeouts, deadlocks and the coordinator's own
// lock deadline to ErrInsufficientInventory.  Cancellation by the caller
// is passed through.
func (c *Coordinator) lockErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if database.IsLockTimeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: lock wait: %s: %v", ErrInsufficientInventory, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Cancel cancels a PENDING or CONFIRMED booking owned by guestID and
// returns its rooms to the ledger.
func (c *Coordinator) Cancel(ctx context.Context, ref string, guestID uint64, reason string) (*model.Booking, error) {
	owner := func(b *model.Booking) error {
		if b.GuestID != guestID {
			return ErrForbidden
		}
		return nil
	}
	var r *string
	if s := strings.TrimSpace(reason); s != "" {
		r = &s
	}
	return c.transition(ctx, ref, model.BookingCancelled, owner, r)
}

// CheckIn moves a CONFIRMED booking to CHECKED_IN.
func (c *Coordinator) CheckIn(ctx context.Context, ref string) (*model.Booking, error) {
	return c.transition(ctx, ref, model.BookingCheckedIn, nil, nil)
}

// CheckOut moves a CHECKED_IN booking to CHECKED_OUT.  The rooms stay
// counted: the nights were used.
func (c *Coordinator) CheckOut(ctx context.Context, ref string) (*model.Booking, error) {
	return c.transition(ctx, ref, model.BookingCheckedOut, nil, nil)
}

// MarkNoShow moves a CONFIRMED booking to NO_SHOW and releases its rooms.
func (c *Coordinator) MarkNoShow(ctx context.Context, ref string) (*model.Booking, error) {
	return c.transition(ctx, ref, model.BookingNoShow, nil, nil)
}

// transition applies one state machine step under the booking's row lock.
// Steps into a state that no longer holds inventory decrement the ledger
// in the same transaction.
func (c *Coordinator) transition(ctx context.Context, ref string, to model.BookingStatus, guard func(*model.Booking) error, reason *string) (*model.Booking, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := c.bookings.GetByReferenceForUpdateTx(ctx, tx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, c.lockErr(ctx, "load booking", err)
	}
	if guard != nil {
		if err := guard(b); err != nil {
			return nil, err
		}
	}
	if !b.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, b.Status, to)
	}

	if b.Status.HoldsInventory() && !to.HoldsInventory() {
		if err := c.release(ctx, tx, b); err != nil {
			return nil, err
		}
	}

	now := c.now().UTC()
	change := repository.StatusChange{From: b.Status, To: to, At: now}
	if to == model.BookingCancelled {
		change.Reason = reason
		change.CancelledAt = &now
	}
	if err := c.bookings.UpdateStatusTx(ctx, tx, b.ID, change); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidState)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, c.lockErr(ctx, "commit", err)
	}
	committed = true

	from := b.Status
	b.Status, b.UpdatedAt = to, now
	if to == model.BookingCancelled {
		b.CancellationReason, b.CancelledAt = reason, &now
	}
	metrics.BookingTransitions.WithLabelValues(string(to)).Inc()
	c.log.Info("booking status changed",
		zap.String("reference", b.Reference), zap.String("from", string(from)), zap.String("to", string(to)))
	if !to.HoldsInventory() {
		c.publish(ctx, b)
	}
	return b, nil
}

// release locks the booking's ledger rows and gives its rooms back.
func (c *Coordinator) release(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	stay := b.Stay()
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	_, err := c.inventory.LockRowsForRangeTx(lockCtx, tx, b.RoomTypeID, stay)
	cancel()
	if err != nil {
		return c.lockErr(ctx, "lock ledger rows", err)
	}
	if err := c.inventory.DecrementBookedTx(ctx, tx, b.RoomTypeID, stay, b.NumRooms); err != nil {
		if errors.Is(err, repository.ErrInventoryCorruption) {
			c.invariantViolated("inventory_corruption", b.RoomTypeID, stay, err)
		}
		return err
	}
	return nil
}

func (c *Coordinator) invariantViolated(kind string, roomTypeID uint64, stay model.DateRange, err error) {
	metrics.LedgerInvariantViolations.WithLabelValues(kind).Inc()
	c.log.Error("ledger invariant violated",
		zap.String("kind", kind), zap.Uint64("room_type_id", roomTypeID), zap.Stringer("stay", stay), zap.Error(err))
}

func (c *Coordinator) publish(ctx context.Context, b *model.Booking) {
	ev := queue.NewBookingEvent(b, c.now())
	if err := c.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Warn("publish booking event failed",
			zap.String("reference", b.Reference), zap.String("queue", ev.Queue), zap.Error(err))
	}
}

// Get returns a booking owned by guestID.
func (c *Coordinator) Get(ctx context.Context, ref string, guestID uint64) (*model.Booking, error) {
	b, err := c.bookings.GetByReference(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.GuestID != guestID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Page is one page of a guest's bookings.
type Page struct {
	Items    []model.Booking `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// List returns a guest's bookings, latest check-in first.  page starts
// at 1.
func (c *Coordinator) List(ctx context.Context, guestID uint64, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	total, err := c.bookings.CountByGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}
	items, err := c.bookings.ListByGuest(ctx, guestID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Booking{}
	}
	return &Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
