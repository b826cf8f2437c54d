package orders

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/cart"
	kafkago "github.com/segmentio/kafka-go"
)

// memDB backs three table fakes that share one transaction snapshot.
type memDB struct {
	nextID    int64
	orders    map[int64]Order
	lines     map[int64][]Line
	carts     map[int64][]cart.Line
	addrs     map[int64]address.Entry
	failLines error
	// afterLock runs once the cart has been read, standing in for a
	// concurrent writer.
	afterLock func()
}

type memState struct {
	nextID int64
	orders map[int64]Order
	lines  map[int64][]Line
	carts  map[int64][]cart.Line
}

func (db *memDB) id() int64 { db.nextID++; return db.nextID }

func (db *memDB) snapshot() memState {
	s := memState{nextID: db.nextID, orders: map[int64]Order{}, lines: map[int64][]Line{}, carts: map[int64][]cart.Line{}}
	for k, v := range db.orders {
		s.orders[k] = v
	}
	for k, v := range db.lines {
		s.lines[k] = append([]Line{}, v...)
	}
	for k, v := range db.carts {
		s.carts[k] = append([]cart.Line{}, v...)
	}
	return s
}

func (db *memDB) restore(s memState) {
	db.nextID, db.orders, db.lines, db.carts = s.nextID, s.orders, s.lines, s.carts
}

type memOrders struct{ *memDB }

func (m memOrders) InsertOrder(_ context.Context, o Order) (int64, error) {
	o.ID = m.id()
	m.orders[o.ID] = o
	return o.ID, nil
}

func (m memOrders) InsertLines(_ context.Context, lines []Line) error {
	if m.failLines != nil {
		return m.failLines
	}
	for _, l := range lines {
		l.ID = m.id()
		m.lines[l.OrderID] = append(m.lines[l.OrderID], l)
	}
	return nil
}

func (m memOrders) ByID(_ context.Context, id int64) (Order, bool, error) {
	o, ok := m.orders[id]
	return o, ok, nil
}

func (m memOrders) LinesByOrder(_ context.Context, orderID int64) ([]Line, error) {
	return append([]Line{}, m.lines[orderID]...), nil
}

func (m memOrders) PageByUser(_ context.Context, userID int64, page, size int) ([]Order, int64, error) {
	return m.window(func(o Order) bool { return o.UserID == userID }, page, size)
}

func (m memOrders) Search(_ context.Context, f Filter, page, size int) ([]Order, int64, error) {
	return m.window(func(o Order) bool {
		return (f.Number == "" || strings.Contains(o.Number, f.Number)) &&
			(f.Status == 0 || o.Status == f.Status) &&
			(f.From.IsZero() || !o.OrderTime.Before(f.From)) &&
			(f.To.IsZero() || o.OrderTime.Before(f.To))
	}, page, size)
}

func (m memOrders) window(keep func(Order) bool, page, size int) ([]Order, int64, error) {
	all := []Order{}
	for _, o := range m.orders {
		if keep(o) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].OrderTime.Equal(all[j].OrderTime) {
			return all[i].OrderTime.After(all[j].OrderTime)
		}
		return all[i].ID > all[j].ID
	})
	start := (page - 1) * size
	if start >= len(all) {
		return []Order{}, int64(len(all)), nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m memOrders) UpdateStatus(_ context.Context, id int64, from, to Status) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	m.orders[id] = o
	return true, nil
}

type memCart struct{ *memDB }

func (m memCart) LockByUser(_ context.Context, userID int64) ([]cart.Line, error) {
	out := append([]cart.Line{}, m.carts[userID]...)
	if m.afterLock != nil {
		m.afterLock()
	}
	return out, nil
}

func (m memCart) DeleteLines(_ context.Context, userID int64, ids []int64) error {
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := []cart.Line{}
	for _, l := range m.carts[userID] {
		if !drop[l.ID] {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(m.carts, userID)
		return nil
	}
	m.carts[userID] = kept
	return nil
}

func (m memCart) Put(_ context.Context, l cart.Line) (cart.Line, error) {
	for i, cur := range m.carts[l.UserID] {
		if cur.Item == l.Item {
			m.carts[l.UserID][i].Quantity += l.Quantity
			return m.carts[l.UserID][i], nil
		}
	}
	l.ID = m.id()
	m.carts[l.UserID] = append(m.carts[l.UserID], l)
	return l, nil
}

type memAddrs struct{ *memDB }

func (m memAddrs) ByID(_ context.Context, id int64) (address.Entry, bool, error) {
	e, ok := m.addrs[id]
	return e, ok, nil
}

func (m memAddrs) ListByUser(_ context.Context, userID int64) ([]address.Entry, error) {
	out := []address.Entry{}
	for _, e := range m.addrs {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m memAddrs) Insert(_ context.Context, e address.Entry) (int64, error) {
	e.ID = m.id()
	m.addrs[e.ID] = e
	return e.ID, nil
}

func (m memAddrs) Update(_ context.Context, e address.Entry) error {
	m.addrs[e.ID] = e
	return nil
}

func (m memAddrs) Delete(_ context.Context, id int64) error {
	delete(m.addrs, id)
	return nil
}

func (m memAddrs) ClearDefault(_ context.Context, userID int64) error {
	for id, e := range m.addrs {
		if e.UserID == userID {
			e.IsDefault = false
			m.addrs[id] = e
		}
	}
	return nil
}

func (m memAddrs) MarkDefault(_ context.Context, userID, id int64) (bool, error) {
	e, ok := m.addrs[id]
	if !ok || e.UserID != userID {
		return false, nil
	}
	e.IsDefault = true
	m.addrs[id] = e
	return true, nil
}

// memStore is the TxStore fake. A failing unit of work restores orders,
// lines and carts as they were before it started.
type memStore struct{ memOrders }

func newMemStore() *memStore {
	return &memStore{memOrders{&memDB{
		orders: map[int64]Order{},
		lines:  map[int64][]Line{},
		carts:  map[int64][]cart.Line{},
		addrs:  map[int64]address.Entry{},
	}}}
}

func (s *memStore) InTx(_ context.Context, fn func(Unit) error) error {
	snap := s.snapshot()
	err := fn(Unit{Orders: memOrders{s.memDB}, Cart: memCart{s.memDB}, Addresses: memAddrs{s.memDB}})
	if err != nil {
		s.restore(snap)
	}
	return err
}

type published struct {
	key, value []byte
	headers    []kafkago.Header
}

type recordingPublisher struct{ msgs []published }

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.msgs = append(p.msgs, published{key: key, value: value, headers: headers})
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
