package cart

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres cart table. DB may be the pool or an open transaction.
type Repo struct{ DB postgres.DBTX }

const lineColumns = `id, user_id, item_kind, item_id, flavor, quantity, amount::text, name, image, created_at`

// Increment inserts the line with quantity 1 or bumps the existing line for
// (user, item) by one in a single statement. Flavor and display fields of an
// existing line are left as they were.
func (r *Repo) Increment(ctx context.Context, l Line) (Line, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO cart_lines(user_id, item_kind, item_id, flavor, quantity, amount, name, image)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $7)
		ON CONFLICT (user_id, item_kind, item_id)
		DO UPDATE SET quantity = cart_lines.quantity + 1
		RETURNING `+lineColumns,
		l.UserID, string(l.Item.Kind), l.Item.ID, l.Flavor, l.Amount, l.Name, l.Image)
	return scanLine(row)
}

// Decrement lowers quantity by one, deleting the row when it would reach
// zero. found is false when the user has no line for item.
func (r *Repo) Decrement(ctx context.Context, userID int64, item ItemRef) (line Line, removed, found bool, err error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE cart_lines SET quantity = quantity - 1
		WHERE user_id=$1 AND item_kind=$2 AND item_id=$3 AND quantity > 1
		RETURNING `+lineColumns, userID, string(item.Kind), item.ID)
	line, err = scanLine(row)
	if err == nil {
		return line, false, true, nil
	}
	if !postgres.IsNoRows(err) {
		return Line{}, false, false, err
	}

	row = r.DB.QueryRow(ctx, `
		DELETE FROM cart_lines
		WHERE user_id=$1 AND item_kind=$2 AND item_id=$3
		RETURNING `+lineColumns, userID, string(item.Kind), item.ID)
	line, err = scanLine(row)
	if postgres.IsNoRows(err) {
		return Line{}, false, false, nil
	}
	if err != nil {
		return Line{}, false, false, err
	}
	line.Quantity = 0
	return line, true, true, nil
}

// Put adds l with its own quantity, merging into an existing line for the
// same item.
func (r *Repo) Put(ctx context.Context, l Line) (Line, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO cart_lines(user_id, item_kind, item_id, flavor, quantity, amount, name, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, item_kind, item_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING `+lineColumns,
		l.UserID, string(l.Item.Kind), l.Item.ID, l.Flavor, l.Quantity, l.Amount, l.Name, l.Image)
	return scanLine(row)
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Line, error) {
	return r.list(ctx, `SELECT `+lineColumns+` FROM cart_lines WHERE user_id=$1 ORDER BY created_at, id`, userID)
}

func (r *Repo) list(ctx context.Context, query string, userID int64) ([]Line, error) {
	rows, err := r.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LockByUser is ListByUser with the rows locked FOR UPDATE. Increments of a
// locked line wait for the transaction; lines inserted meanwhile are not
// returned.
func (r *Repo) LockByUser(ctx context.Context, userID int64) ([]Line, error) {
	return r.list(ctx, `SELECT `+lineColumns+` FROM cart_lines WHERE user_id=$1 ORDER BY created_at, id FOR UPDATE`, userID)
}

// DeleteLines removes the given lines of one user.
func (r *Repo) DeleteLines(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1 AND id = ANY($2)`, userID, ids)
	return err
}

func (r *Repo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return err
}

// Store wraps Repo with transaction support over a pool.
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

func (s *Store) InTx(ctx context.Context, fn func(LineStore) error) error {
	return postgres.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(&Repo{DB: tx})
	})
}

func scanLine(row pgx.Row) (Line, error) {
	var (
		l      Line
		kind   string
		amount string
	)
	if err := row.Scan(&l.ID, &l.UserID, &kind, &l.Item.ID, &l.Flavor, &l.Quantity, &amount, &l.Name, &l.Image, &l.CreatedAt); err != nil {
		return Line{}, err
	}
	l.Item.Kind = ItemKind(kind)
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Line{}, fmt.Errorf("cart line %d amount %q: %w", l.ID, amount, err)
	}
	l.Amount = d
	return l, nil
}
