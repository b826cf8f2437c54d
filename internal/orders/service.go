package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/ariefcatur/go-takeout/internal/cart"
	kafkax "github.com/ariefcatur/go-takeout/internal/kafka"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/paging"
	"github.com/ariefcatur/go-takeout/internal/redisx"
	"github.com/ariefcatur/go-takeout/internal/validate"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = apperr.New(apperr.KindEmptyCart, "shopping cart is empty")
	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "order not found")
	ErrNotOwner          = apperr.New(apperr.KindForbidden, "order belongs to another user")
	ErrIllegalTransition = apperr.New(apperr.KindConflict, "illegal status transition")
	ErrStatusChanged     = apperr.New(apperr.KindConflict, "order status changed concurrently")
	ErrBadStatus         = apperr.New(apperr.KindValidation, "unknown order status")
)

type OrderStore interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertLines(ctx context.Context, lines []Line) error
	ByID(ctx context.Context, id int64) (Order, bool, error)
	LinesByOrder(ctx context.Context, orderID int64) ([]Line, error)
	PageByUser(ctx context.Context, userID int64, page, size int) ([]Order, int64, error)
	Search(ctx context.Context, f Filter, page, size int) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) (bool, error)
}

// CartStore is the part of the cart table an order touches. LockByUser
// holds the returned lines until the transaction ends; DeleteLines removes
// only the given ids, so lines added after the lock survive.
type CartStore interface {
	LockByUser(ctx context.Context, userID int64) ([]cart.Line, error)
	DeleteLines(ctx context.Context, userID int64, ids []int64) error
	Put(ctx context.Context, l cart.Line) (cart.Line, error)
}

// Unit is one transaction over every table a submission touches.
type Unit struct {
	Orders    OrderStore
	Cart      CartStore
	Addresses address.EntryStore
}

type TxStore interface {
	OrderStore
	InTx(ctx context.Context, fn func(Unit) error) error
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// StatusCache holds the snapshots the kitchen projector writes. Writes never
// replace a snapshot carrying a later status.
type StatusCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetIfHigher(ctx context.Context, key string, val []byte, status int, ttl time.Duration) (bool, error)
}

type Service struct {
	Store        TxStore
	Submitted    Publisher
	StatusEvents Publisher
	Statuses     StatusCache
	Producer     string
	Log          *slog.Logger
	Now          func() time.Time
}

func NewService(store TxStore, log *slog.Logger) *Service {
	return &Service{Store: store, Producer: "takeout-api", Log: logx.OrDiscard(log), Now: time.Now}
}

// Submit turns the user's cart into an order in one transaction: the
// address is checked, the cart lines are copied, the amount is summed, and
// the cart is cleared. The submitted event goes out after commit.
func (s *Service) Submit(ctx context.Context, userID int64, req SubmitRequest) (SubmitResult, error) {
	if err := validate.Struct(req); err != nil {
		return SubmitResult{}, err
	}
	var (
		order Order
		lines []Line
	)
	err := s.Store.InTx(ctx, func(u Unit) error {
		addr, err := address.Owned(ctx, u.Addresses, userID, req.AddressBookID)
		if err != nil {
			return err
		}
		cartLines, err := u.Cart.LockByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(cartLines) == 0 {
			return ErrEmptyCart
		}

		now := s.now()
		order = Order{
			Number:        newNumber(now),
			Status:        StatusAwaitingPayment,
			UserID:        userID,
			AddressBookID: addr.ID,
			OrderTime:     now,
			CheckoutTime:  now,
			PayMethod:     req.PayMethod,
			Amount:        amountOf(cartLines),
			Remark:        req.Remark,
			Consignee:     addr.Consignee,
			Phone:         addr.Phone,
			Address:       addr.FullAddress(),
		}
		if order.ID, err = u.Orders.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		lines = make([]Line, 0, len(cartLines))
		for _, l := range cartLines {
			lines = append(lines, fromCart(order.ID, l))
		}
		if err := u.Orders.InsertLines(ctx, lines); err != nil {
			return fmt.Errorf("insert lines of order %d: %w", order.ID, err)
		}
		if err := u.Cart.DeleteLines(ctx, userID, lineIDs(cartLines)); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	s.cacheStatus(ctx, StatusSnapshot{OrderID: order.ID, UserID: userID, Status: order.Status, UpdatedAt: order.OrderTime})

	s.publish(ctx, s.Submitted, EventOrderSubmitted, order.ID, OrderSubmittedPayload{
		OrderID:   order.ID,
		Number:    order.Number,
		UserID:    userID,
		Amount:    order.Amount,
		Remark:    order.Remark,
		Lines:     lineQtys(lines),
		OrderTime: order.OrderTime,
	})
	s.Log.Info("order submitted", "action", "order_submit", "order_id", order.ID, "user_id", userID,
		"lines", len(lines), "amount", order.Amount.StringFixed(2))
	return SubmitResult{OrderID: order.ID, Number: order.Number, Amount: order.Amount, OrderTime: order.OrderTime}, nil
}

// Page lists the user's own orders newest first, each with its lines.
func (s *Service) Page(ctx context.Context, userID int64, page, size int) (paging.Page[View], error) {
	page, size = paging.Normalize(page, size)
	rows, total, err := s.Store.PageByUser(ctx, userID, page, size)
	if err != nil {
		return paging.Page[View]{}, fmt.Errorf("page orders of user %d: %w", userID, err)
	}
	return s.views(ctx, rows, total, page, size)
}

// AdminPage is the staff search over every user's orders.
func (s *Service) AdminPage(ctx context.Context, f Filter, page, size int) (paging.Page[View], error) {
	page, size = paging.Normalize(page, size)
	rows, total, err := s.Store.Search(ctx, f, page, size)
	if err != nil {
		return paging.Page[View]{}, fmt.Errorf("search orders: %w", err)
	}
	return s.views(ctx, rows, total, page, size)
}

func (s *Service) Get(ctx context.Context, userID, orderID int64) (View, error) {
	o, err := owned(ctx, s.Store, userID, orderID)
	if err != nil {
		return View{}, err
	}
	lines, err := s.Store.LinesByOrder(ctx, orderID)
	if err != nil {
		return View{}, fmt.Errorf("lines of order %d: %w", orderID, err)
	}
	return View{Order: o, Lines: lines}, nil
}

// Status answers from the projector's cache when it has the order and falls
// back to the database, refilling the cache.
func (s *Service) Status(ctx context.Context, userID, orderID int64) (StatusSnapshot, error) {
	key := redisx.OrderStatusKey(orderID)
	if s.Statuses != nil {
		b, err := s.Statuses.Get(ctx, key)
		switch {
		case err == nil:
			var snap StatusSnapshot
			if jerr := json.Unmarshal(b, &snap); jerr == nil && snap.OrderID == orderID {
				if snap.UserID != userID {
					return StatusSnapshot{}, fmt.Errorf("order %d: %w", orderID, ErrNotOwner)
				}
				return snap, nil
			}
		case !errors.Is(err, redisx.ErrMiss):
			s.Log.Warn("status cache read failed", "action", "order_status", "order_id", orderID, "error", err)
		}
	}

	o, err := owned(ctx, s.Store, userID, orderID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	snap := StatusSnapshot{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: s.now()}
	s.cacheStatus(ctx, snap)
	return snap, nil
}

// UpdateStatus is the staff transition. Moves outside the status machine
// fail with ErrIllegalTransition.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("status %d: %w", to, ErrBadStatus)
	}
	o, found, err := s.Store.ByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	if !found {
		return fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}
	return s.transition(ctx, o, to)
}

// Cancel lets a user withdraw an order that has not left the kitchen.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64) error {
	o, err := owned(ctx, s.Store, userID, orderID)
	if err != nil {
		return err
	}
	return s.transition(ctx, o, StatusCancelled)
}

// Reorder replaces the user's cart with the lines of one of their past
// orders. It returns the number of lines put back.
func (s *Service) Reorder(ctx context.Context, userID, orderID int64) (int, error) {
	var n int
	err := s.Store.InTx(ctx, func(u Unit) error {
		if _, err := owned(ctx, u.Orders, userID, orderID); err != nil {
			return err
		}
		lines, err := u.Orders.LinesByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lines of order %d: %w", orderID, err)
		}
		current, err := u.Cart.LockByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if err := u.Cart.DeleteLines(ctx, userID, lineIDs(current)); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		for _, l := range lines {
			if _, err := u.Cart.Put(ctx, l.toCart(userID)); err != nil {
				return fmt.Errorf("put %s back: %w", l.Item, err)
			}
		}
		n = len(lines)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Info("order copied to cart", "action", "order_again", "order_id", orderID, "user_id", userID, "lines", n)
	return n, nil
}

func (s *Service) transition(ctx context.Context, o Order, to Status) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("order %d %s -> %s: %w", o.ID, o.Status, to, ErrIllegalTransition)
	}
	ok, err := s.Store.UpdateStatus(ctx, o.ID, o.Status, to)
	if err != nil {
		return fmt.Errorf("update status of order %d: %w", o.ID, err)
	}
	if !ok {
		return fmt.Errorf("order %d: %w", o.ID, ErrStatusChanged)
	}
	s.cacheStatus(ctx, StatusSnapshot{OrderID: o.ID, UserID: o.UserID, Status: to, UpdatedAt: s.now()})
	s.publish(ctx, s.StatusEvents, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID: o.ID, UserID: o.UserID, From: o.Status, To: to,
	})
	s.Log.Info("order status changed", "action", "order_status", "order_id", o.ID, "from", o.Status.String(), "to", to.String())
	return nil
}

// cacheStatus writes snap through to the status cache. A failure is logged;
// readers fall back to the database.
func (s *Service) cacheStatus(ctx context.Context, snap StatusSnapshot) {
	if s.Statuses == nil {
		return
	}
	_, err := s.Statuses.SetIfHigher(ctx, redisx.OrderStatusKey(snap.OrderID), kafkax.MustMarshal(snap),
		int(snap.Status), redisx.TTLStatusCache)
	if err != nil {
		s.Log.Warn("status cache write failed", "action", "order_status", "order_id", snap.OrderID, "error", err)
	}
}

func (s *Service) views(ctx context.Context, rows []Order, total int64, page, size int) (paging.Page[View], error) {
	out := paging.Page[View]{Records: make([]View, 0, len(rows)), Total: total, Current: page, Size: size}
	for _, o := range rows {
		lines, err := s.Store.LinesByOrder(ctx, o.ID)
		if err != nil {
			return paging.Page[View]{}, fmt.Errorf("lines of order %d: %w", o.ID, err)
		}
		out.Records = append(out.Records, View{Order: o, Lines: lines})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, p Publisher, eventType string, orderID int64, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.Producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type orderReader interface {
	ByID(ctx context.Context, id int64) (Order, bool, error)
}

func owned(ctx context.Context, r orderReader, userID, orderID int64) (Order, error) {
	o, found, err := r.ByID(ctx, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if !found {
		return Order{}, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}
	if o.UserID != userID {
		return Order{}, fmt.Errorf("order %d: %w", orderID, ErrNotOwner)
	}
	return o, nil
}

func lineIDs(lines []cart.Line) []int64 {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}

// amountOf sums unit amount times quantity exactly.
func amountOf(lines []cart.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// newNumber is the customer-facing order number: submission time plus a
// random suffix.
func newNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return now.UTC().Format("20060102150405") + suffix
}
