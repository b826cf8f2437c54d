package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-takeout/internal/address"
	"github.com/ariefcatur/go-takeout/internal/cart"
	"github.com/ariefcatur/go-takeout/internal/paging"
	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres orders and order_lines tables. DB may be the pool or
// an open transaction.
type Repo struct{ DB postgres.DBTX }

const orderColumns = `id, number, status, user_id, address_book_id, order_time, checkout_time,
	pay_method, amount::text, remark, consignee, phone, address`

var lineColumns = []string{"order_id", "name", "item_kind", "item_id", "flavor", "quantity", "amount", "image"}

func (r *Repo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO orders(number, status, user_id, address_book_id, order_time, checkout_time,
			pay_method, amount, remark, consignee, phone, address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		o.Number, int16(o.Status), o.UserID, o.AddressBookID, o.OrderTime, o.CheckoutTime,
		int16(o.PayMethod), o.Amount, o.Remark, o.Consignee, o.Phone, o.Address,
	).Scan(&id)
	return id, err
}

// InsertLines writes every line of one order with a single statement.
func (r *Repo) InsertLines(ctx context.Context, lines []Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.OrderID, l.Name, string(l.Item.Kind), l.Item.ID, l.Flavor, l.Quantity, l.Amount, l.Image})
	}
	n, err := postgres.InsertRows(ctx, r.DB, "order_lines", lineColumns, rows)
	if err != nil {
		return err
	}
	if n != int64(len(lines)) {
		return fmt.Errorf("insert order lines: wrote %d of %d", n, len(lines))
	}
	return nil
}

func (r *Repo) ByID(ctx context.Context, id int64) (Order, bool, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

func (r *Repo) LinesByOrder(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, name, item_kind, item_id, flavor, quantity, amount::text, image
		FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		var (
			l      Line
			kind   string
			amount string
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Name, &kind, &l.Item.ID, &l.Flavor, &l.Quantity, &amount, &l.Image); err != nil {
			return nil, err
		}
		l.Item.Kind = cart.ItemKind(kind)
		if l.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("order line %d amount %q: %w", l.ID, amount, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PageByUser lists the user's orders newest first.
func (r *Repo) PageByUser(ctx context.Context, userID int64, page, size int) ([]Order, int64, error) {
	return r.page(ctx, "user_id=$1", []any{userID}, page, size)
}

func (r *Repo) Search(ctx context.Context, f Filter, page, size int) ([]Order, int64, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Number != "" {
		add("number ILIKE $%d", "%"+f.Number+"%")
	}
	if f.Status != 0 {
		add("status=$%d", int16(f.Status))
	}
	if !f.From.IsZero() {
		add("order_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("order_time < $%d", f.To)
	}
	where := "TRUE"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	return r.page(ctx, where, args, page, size)
}

func (r *Repo) page(ctx context.Context, where string, args []any, page, size int) ([]Order, int64, error) {
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM orders WHERE %s
		ORDER BY order_time DESC, id DESC
		LIMIT $%d OFFSET $%d`, orderColumns, where, n+1, n+2),
		append(args, size, paging.Offset(page, size))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves id from one status to another. ok is false when the
// order is no longer in from.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$3 WHERE id=$1 AND status=$2`, id, int16(from), int16(to))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Store opens transactions that span orders, cart and address book.
type Store struct {
	*Repo
	Pool postgres.Beginner
}

func NewStore(pool interface {
	postgres.DBTX
	postgres.Beginner
}) *Store {
	return &Store{Repo: &Repo{DB: pool}, Pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(Unit) error) error {
	return postgres.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(Unit{
			Orders:    &Repo{DB: tx},
			Cart:      &cart.Repo{DB: tx},
			Addresses: &address.Repo{DB: tx},
		})
	})
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o         Order
		status    int
		payMethod int
		amount    string
	)
	err := row.Scan(&o.ID, &o.Number, &status, &o.UserID, &o.AddressBookID, &o.OrderTime, &o.CheckoutTime,
		&payMethod, &amount, &o.Remark, &o.Consignee, &o.Phone, &o.Address)
	if err != nil {
		return Order{}, err
	}
	o.Status, o.PayMethod = Status(status), PayMethod(payMethod)
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return Order{}, fmt.Errorf("order %d amount %q: %w", o.ID, amount, err)
	}
	return o, nil
}
