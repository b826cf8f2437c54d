package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/ariefcatur/go-takeout/internal/cart"
	kafkax "github.com/ariefcatur/go-takeout/internal/kafka"
	"github.com/ariefcatur/go-takeout/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 7
	bob   int64 = 8
)

var submittedAt = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memStore
	events *recordingPublisher
	status *recordingPublisher
}

func newFixture() fixture {
	store := newMemStore()
	store.addrs[100] = address.Entry{
		ID: 100, UserID: alice, Consignee: "Alice", Phone: "13800000000",
		ProvinceName: "Zhejiang", CityName: "Hangzhou", DistrictName: "Xihu", Detail: "No. 1 Lake Rd",
	}
	store.addrs[200] = address.Entry{ID: 200, UserID: bob, Consignee: "Bob", Phone: "13900000000", Detail: "Elsewhere"}
	store.nextID = 1000

	spicy := "spicy"
	store.carts[alice] = []cart.Line{
		{ID: 1, UserID: alice, Item: cart.Dish(1), Flavor: &spicy, Quantity: 2, Amount: decimal.RequireFromString("3.33"), Name: "Fish"},
		{ID: 2, UserID: alice, Item: cart.Setmeal(2), Quantity: 1, Amount: decimal.RequireFromString("1.00"), Name: "Set"},
		{ID: 3, UserID: alice, Item: cart.Dish(3), Quantity: 1, Amount: decimal.RequireFromString("9.99"), Name: "Tofu"},
	}

	svc := NewService(store, nil)
	svc.Now = fixedClock(submittedAt)
	f := fixture{svc: svc, store: store, events: &recordingPublisher{}, status: &recordingPublisher{}}
	svc.Submitted, svc.StatusEvents = f.events, f.status
	return f
}

func submit(t *testing.T, f fixture) SubmitResult {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), alice, SubmitRequest{AddressBookID: 100, PayMethod: PayWeChat, Remark: "no cilantro"})
	require.NoError(t, err)
	return res
}

func TestSubmitCopiesCartIntoOrder(t *testing.T) {
	f := newFixture()
	res := submit(t, f)

	require.Len(t, f.store.orders, 1)
	o := f.store.orders[res.OrderID]
	assert.True(t, decimal.RequireFromString("17.65").Equal(o.Amount), o.Amount.String())
	assert.True(t, o.Amount.Equal(res.Amount))
	assert.Equal(t, StatusAwaitingPayment, o.Status)
	assert.Equal(t, submittedAt, o.OrderTime)
	assert.Equal(t, o.OrderTime, o.CheckoutTime)
	assert.Equal(t, "Alice", o.Consignee)
	assert.Equal(t, "13800000000", o.Phone)
	assert.Equal(t, "Zhejiang Hangzhou Xihu No. 1 Lake Rd", o.Address)
	assert.Equal(t, "no cilantro", o.Remark)
	assert.NotEmpty(t, o.Number)

	lines := f.store.lines[res.OrderID]
	require.Len(t, lines, 3)
	assert.Equal(t, cart.Dish(1), lines[0].Item)
	assert.Equal(t, "spicy", *lines[0].Flavor)
	assert.Equal(t, 2, lines[0].Quantity)
	for _, l := range lines {
		assert.Equal(t, res.OrderID, l.OrderID)
		assert.NotContains(t, []int64{1, 2, 3}, l.ID, "cart identity is not carried over")
	}

	assert.Empty(t, f.store.carts[alice])
}

func TestSubmitKeepsLinesAddedDuringCheckout(t *testing.T) {
	f := newFixture()
	late := cart.Line{ID: 9, UserID: alice, Item: cart.Dish(9), Quantity: 1, Amount: decimal.NewFromInt(5), Name: "Rice"}
	f.store.afterLock = func() {
		f.store.afterLock = nil
		f.store.carts[alice] = append(f.store.carts[alice], late)
	}

	res := submit(t, f)

	assert.Len(t, f.store.lines[res.OrderID], 3)
	assert.True(t, decimal.RequireFromString("17.65").Equal(f.store.orders[res.OrderID].Amount))
	assert.Equal(t, []cart.Line{late}, f.store.carts[alice], "line added after the cart was read survives")
}

func TestReorderKeepsLinesAddedDuringCopy(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	late := cart.Line{ID: 9, UserID: alice, Item: cart.Dish(9), Quantity: 1, Amount: decimal.NewFromInt(5)}
	f.store.afterLock = func() {
		f.store.afterLock = nil
		f.store.carts[alice] = append(f.store.carts[alice], late)
	}

	n, err := f.svc.Reorder(context.Background(), alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.store.carts[alice], 4)
	assert.Equal(t, late, f.store.carts[alice][0])
}

func TestSubmitPublishesAfterCommit(t *testing.T) {
	f := newFixture()
	res := submit(t, f)

	require.Len(t, f.events.msgs, 1)
	msg := f.events.msgs[0]
	assert.Equal(t, PartitionKey(res.OrderID), msg.key)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	assert.Equal(t, EventOrderSubmitted, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	p, err := kafkax.UnwrapPayload[OrderSubmittedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, p.OrderID)
	assert.Len(t, p.Lines, 3)
	assert.True(t, p.Amount.Equal(res.Amount))
	assert.Equal(t, "x-event-type", msg.headers[0].Key)
	assert.Empty(t, f.status.msgs)
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture()
	delete(f.store.carts, alice)

	_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{AddressBookID: 100, PayMethod: PayAlipay})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, apperr.KindEmptyCart, apperr.KindOf(err))
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.store.lines)
	assert.Empty(t, f.events.msgs)
}

func TestSubmitAddressChecks(t *testing.T) {
	cases := []struct {
		name    string
		address int64
		want    error
		kind    apperr.Kind
	}{
		{"missing", 404, address.ErrNotFound, apperr.KindNotFound},
		{"someone else's", 200, address.ErrNotOwner, apperr.KindForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{AddressBookID: tc.address, PayMethod: PayWeChat})
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Empty(t, f.store.orders)
			assert.Len(t, f.store.carts[alice], 3)
		})
	}
}

func TestSubmitRollsBackWhenLinesFail(t *testing.T) {
	f := newFixture()
	boom := errors.New("disk full")
	f.store.failLines = boom

	_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{AddressBookID: 100, PayMethod: PayWeChat})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	assert.Empty(t, f.store.orders, "order row rolled back")
	assert.Len(t, f.store.carts[alice], 3, "cart survives")
	assert.Empty(t, f.events.msgs)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{AddressBookID: 100, PayMethod: 9})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRecipientIsSnapshot(t *testing.T) {
	f := newFixture()
	res := submit(t, f)

	e := f.store.addrs[100]
	e.Consignee, e.Detail = "Carol", "Moved away"
	f.store.addrs[100] = e

	v, err := f.svc.Get(context.Background(), alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", v.Order.Consignee)
	assert.Contains(t, v.Order.Address, "No. 1 Lake Rd")
	assert.Len(t, v.Lines, 3)
}

func TestGetOwnership(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, bob, res.OrderID)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = f.svc.Get(ctx, alice, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPageNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := f.store.carts[alice]
	var ids []int64
	for i, at := range []time.Time{submittedAt, submittedAt.Add(time.Hour), submittedAt.Add(time.Hour)} {
		f.store.carts[alice] = append([]cart.Line{}, base[:i+1]...)
		f.svc.Now = fixedClock(at)
		ids = append(ids, submit(t, f).OrderID)
	}

	page, err := f.svc.Page(ctx, alice, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, ids[2], page.Records[0].Order.ID, "same time breaks ties by id")
	assert.Equal(t, ids[1], page.Records[1].Order.ID)
	assert.Len(t, page.Records[0].Lines, 3)

	rest, err := f.svc.Page(ctx, alice, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Equal(t, ids[0], rest.Records[0].Order.ID)

	other, err := f.svc.Page(ctx, bob, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, other.Records)
	assert.Equal(t, 10, other.Size)
}

func TestAdminPageFilters(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()

	all, err := f.svc.AdminPage(ctx, Filter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Total)

	byNumber, err := f.svc.AdminPage(ctx, Filter{Number: res.Number[:14]}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, byNumber.Records, 1)

	none, err := f.svc.AdminPage(ctx, Filter{Status: StatusCompleted}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none.Records)

	later, err := f.svc.AdminPage(ctx, Filter{From: submittedAt.Add(time.Minute)}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, later.Records)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()

	err := f.svc.UpdateStatus(ctx, res.OrderID, StatusCompleted)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	for _, to := range []Status{StatusAwaitingDelivery, StatusDelivering, StatusCompleted} {
		require.NoError(t, f.svc.UpdateStatus(ctx, res.OrderID, to))
	}
	assert.Equal(t, StatusCompleted, f.store.orders[res.OrderID].Status)
	require.Len(t, f.status.msgs, 3)

	var env Envelope
	require.NoError(t, json.Unmarshal(f.status.msgs[2].value, &env))
	p, err := kafkax.UnwrapPayload[OrderStatusChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivering, p.From)
	assert.Equal(t, StatusCompleted, p.To)
	assert.Equal(t, alice, p.UserID)

	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, res.OrderID, StatusCancelled), ErrIllegalTransition)
	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, res.OrderID, Status(42)), ErrBadStatus)
	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, 9999, StatusCancelled), ErrOrderNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Cancel(ctx, bob, res.OrderID), ErrNotOwner)
	require.NoError(t, f.svc.Cancel(ctx, alice, res.OrderID))
	assert.Equal(t, StatusCancelled, f.store.orders[res.OrderID].Status)
	assert.ErrorIs(t, f.svc.Cancel(ctx, alice, res.OrderID), ErrIllegalTransition)
}

func TestReorderRefillsCart(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()
	f.store.carts[alice] = []cart.Line{{ID: 50, UserID: alice, Item: cart.Dish(99), Quantity: 4, Amount: decimal.NewFromInt(1)}}

	n, err := f.svc.Reorder(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got := f.store.carts[alice]
	require.Len(t, got, 3, "previous cart replaced")
	assert.Equal(t, cart.Dish(1), got[0].Item)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, "spicy", *got[0].Flavor)

	_, err = f.svc.Reorder(ctx, bob, res.OrderID)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Len(t, f.store.carts[alice], 3)
}

func TestStatusReadsCacheThenStore(t *testing.T) {
	f := newFixture()
	res := submit(t, f)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.svc.Statuses = redisx.NewStore(rdb)

	snap, err := f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPayment, snap.Status)
	key := redisx.OrderStatusKey(res.OrderID)
	assert.True(t, mr.Exists(key), "fallback refills the cache")

	cached := kafkax.MustMarshal(StatusSnapshot{OrderID: res.OrderID, UserID: alice, Status: StatusDelivering, UpdatedAt: submittedAt})
	require.NoError(t, mr.Set(key, string(cached)))
	snap, err = f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivering, snap.Status, "projector's snapshot wins")

	_, err = f.svc.Status(ctx, bob, res.OrderID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestStatusWithoutCache(t *testing.T) {
	f := newFixture()
	res := submit(t, f)

	snap, err := f.svc.Status(context.Background(), alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, snap.OrderID)
}

func newStatusCache(t *testing.T, f fixture) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.svc.Statuses = redisx.NewStore(rdb)
	return mr
}

func TestStatusFollowsTransitions(t *testing.T) {
	f := newFixture()
	newStatusCache(t, f)
	res := submit(t, f)
	ctx := context.Background()

	snap, err := f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPayment, snap.Status, "submit seeds the cache")

	require.NoError(t, f.svc.Cancel(ctx, alice, res.OrderID))
	snap, err = f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, snap.Status)
}

func TestStatusWritesNeverMoveBackwards(t *testing.T) {
	f := newFixture()
	mr := newStatusCache(t, f)
	res := submit(t, f)
	ctx := context.Background()
	key := redisx.OrderStatusKey(res.OrderID)

	ahead := kafkax.MustMarshal(StatusSnapshot{OrderID: res.OrderID, UserID: alice, Status: StatusDelivering, UpdatedAt: submittedAt})
	require.NoError(t, mr.Set(key, string(ahead)))

	require.NoError(t, f.svc.UpdateStatus(ctx, res.OrderID, StatusAwaitingDelivery))
	snap, err := f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivering, snap.Status, "later snapshot kept")

	mr.Del(key)
	snap, err = f.svc.Status(ctx, alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingDelivery, snap.Status)
	assert.True(t, mr.Exists(key))
}

func TestNewNumber(t *testing.T) {
	a, b := newNumber(submittedAt), newNumber(submittedAt)
	assert.Len(t, a, 22)
	assert.Equal(t, "20260301123000", a[:14])
	assert.NotEqual(t, a, b)
}
