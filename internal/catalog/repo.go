package catalog

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-takeout/internal/paging"
	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres catalog: categories, dishes with flavors, setmeals
// with their component dishes.
type Repo struct{ DB postgres.DBTX }

const (
	categoryColumns = `id, type, name, sort, created_at, updated_at`
	dishColumns     = `id, name, category_id, price::text, code, image, description, status, sort, updated_at`
	setmealColumns  = `id, category_id, name, price::text, status, code, description, image, updated_at`
)

// ---- categories ----

func (r *Repo) CategoryByID(ctx context.Context, id int64) (Category, bool, error) {
	return oneRow(scanCategory(r.DB.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)))
}

func (r *Repo) CategoryByName(ctx context.Context, name string) (Category, bool, error) {
	return oneRow(scanCategory(r.DB.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name=$1`, name)))
}

func (r *Repo) CategoriesPage(ctx context.Context, page, size int) ([]Category, int64, error) {
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, size = paging.Normalize(page, size)
	rows, err := r.DB.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY sort, id LIMIT $1 OFFSET $2`,
		size, paging.Offset(page, size))
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanCategory)
	return out, total, err
}

// CategoriesByType lists every category, or only those of typ when typ > 0.
func (r *Repo) CategoriesByType(ctx context.Context, typ CategoryType) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE ($1 = 0 OR type = $1) ORDER BY sort, updated_at DESC`, int(typ))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCategory)
}

func (r *Repo) InsertCategory(ctx context.Context, c Category) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `INSERT INTO categories(type, name, sort) VALUES ($1,$2,$3) RETURNING id`,
		int(c.Type), c.Name, c.Sort).Scan(&id)
	return id, err
}

func (r *Repo) UpdateCategory(ctx context.Context, c Category) error {
	_, err := r.DB.Exec(ctx, `UPDATE categories SET type=$2, name=$3, sort=$4, updated_at=now() WHERE id=$1`,
		c.ID, int(c.Type), c.Name, c.Sort)
	return err
}

func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	return err
}

// CountByCategory counts the dishes and setmeals filed under categoryID.
func (r *Repo) CountByCategory(ctx context.Context, categoryID int64) (dishes, setmeals int, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM dishes WHERE category_id=$1),
		       (SELECT COUNT(*) FROM setmeals WHERE category_id=$1)`, categoryID).Scan(&dishes, &setmeals)
	return dishes, setmeals, err
}

// ---- dishes ----

func (r *Repo) DishByID(ctx context.Context, id int64) (Dish, bool, error) {
	return oneRow(scanDish(r.DB.QueryRow(ctx, `SELECT `+dishColumns+` FROM dishes WHERE id=$1`, id)))
}

func (r *Repo) DishesByIDs(ctx context.Context, ids []int64) ([]Dish, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+dishColumns+` FROM dishes WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDish)
}

func (r *Repo) DishesByCategory(ctx context.Context, categoryID int64) ([]Dish, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+dishColumns+` FROM dishes WHERE category_id=$1 ORDER BY sort, updated_at DESC`, categoryID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDish)
}

func (r *Repo) DishesPage(ctx context.Context, name string, page, size int) ([]Dish, int64, error) {
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM dishes WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`, name).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, size = paging.Normalize(page, size)
	rows, err := r.DB.Query(ctx, `SELECT `+dishColumns+` FROM dishes
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY updated_at DESC, id DESC LIMIT $2 OFFSET $3`, name, size, paging.Offset(page, size))
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanDish)
	return out, total, err
}

func (r *Repo) InsertDish(ctx context.Context, d Dish) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO dishes(name, category_id, price, code, image, description, status, sort)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		d.Name, d.CategoryID, d.Price, d.Code, d.Image, d.Description, int(d.Status), d.Sort).Scan(&id)
	return id, err
}

func (r *Repo) UpdateDish(ctx context.Context, d Dish) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE dishes SET name=$2, category_id=$3, price=$4, code=$5, image=$6, description=$7, status=$8, sort=$9, updated_at=now()
		WHERE id=$1`,
		d.ID, d.Name, d.CategoryID, d.Price, d.Code, d.Image, d.Description, int(d.Status), d.Sort)
	return err
}

func (r *Repo) SetDishStatus(ctx context.Context, status Status, ids []int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE dishes SET status=$1, updated_at=now() WHERE id = ANY($2)`, int(status), ids)
	return err
}

func (r *Repo) DeleteDishes(ctx context.Context, ids []int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM dishes WHERE id = ANY($1)`, ids)
	return err
}

func (r *Repo) FlavorsByDish(ctx context.Context, dishID int64) ([]Flavor, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, dish_id, name, value FROM dish_flavors WHERE dish_id=$1 ORDER BY id`, dishID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (Flavor, error) {
		var f Flavor
		err := row.Scan(&f.ID, &f.DishID, &f.Name, &f.Value)
		return f, err
	})
}

// ReplaceFlavors drops every flavor of dishID and inserts fs in one batch.
func (r *Repo) ReplaceFlavors(ctx context.Context, dishID int64, fs []Flavor) error {
	if err := r.DeleteFlavors(ctx, []int64{dishID}); err != nil {
		return err
	}
	if len(fs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(fs))
	for _, f := range fs {
		rows = append(rows, []any{dishID, f.Name, f.Value})
	}
	_, err := postgres.InsertRows(ctx, r.DB, "dish_flavors", []string{"dish_id", "name", "value"}, rows)
	return err
}

func (r *Repo) DeleteFlavors(ctx context.Context, dishIDs []int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM dish_flavors WHERE dish_id = ANY($1)`, dishIDs)
	return err
}

// ---- setmeals ----

func (r *Repo) SetmealByID(ctx context.Context, id int64) (Setmeal, bool, error) {
	return oneRow(scanSetmeal(r.DB.QueryRow(ctx, `SELECT `+setmealColumns+` FROM setmeals WHERE id=$1`, id)))
}

func (r *Repo) SetmealsByIDs(ctx context.Context, ids []int64) ([]Setmeal, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+setmealColumns+` FROM setmeals WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSetmeal)
}

func (r *Repo) SetmealsByCategory(ctx context.Context, categoryID int64, status Status) ([]Setmeal, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+setmealColumns+` FROM setmeals
		WHERE category_id=$1 AND status=$2 ORDER BY updated_at DESC, id`, categoryID, int(status))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSetmeal)
}

func (r *Repo) SetmealsPage(ctx context.Context, name string, page, size int) ([]Setmeal, int64, error) {
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM setmeals WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`, name).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, size = paging.Normalize(page, size)
	rows, err := r.DB.Query(ctx, `SELECT `+setmealColumns+` FROM setmeals
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY updated_at DESC, id DESC LIMIT $2 OFFSET $3`, name, size, paging.Offset(page, size))
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, scanSetmeal)
	return out, total, err
}

func (r *Repo) InsertSetmeal(ctx context.Context, s Setmeal) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO setmeals(category_id, name, price, status, code, description, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		s.CategoryID, s.Name, s.Price, int(s.Status), s.Code, s.Description, s.Image).Scan(&id)
	return id, err
}

func (r *Repo) UpdateSetmeal(ctx context.Context, s Setmeal) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE setmeals SET category_id=$2, name=$3, price=$4, status=$5, code=$6, description=$7, image=$8, updated_at=now()
		WHERE id=$1`,
		s.ID, s.CategoryID, s.Name, s.Price, int(s.Status), s.Code, s.Description, s.Image)
	return err
}

func (r *Repo) SetSetmealStatus(ctx context.Context, status Status, ids []int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE setmeals SET status=$1, updated_at=now() WHERE id = ANY($2)`, int(status), ids)
	return err
}

func (r *Repo) DeleteSetmeals(ctx context.Context, ids []int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM setmeals WHERE id = ANY($1)`, ids)
	return err
}

func (r *Repo) SetmealDishes(ctx context.Context, setmealID int64) ([]SetmealDish, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, setmeal_id, dish_id, name, price::text, copies, sort
		FROM setmeal_dishes WHERE setmeal_id=$1 ORDER BY sort, id`, setmealID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (SetmealDish, error) {
		var (
			sd    SetmealDish
			price string
		)
		if err := row.Scan(&sd.ID, &sd.SetmealID, &sd.DishID, &sd.Name, &price, &sd.Copies, &sd.Sort); err != nil {
			return SetmealDish{}, err
		}
		var err error
		sd.Price, err = parseMoney(price)
		return sd, err
	})
}

func (r *Repo) ReplaceSetmealDishes(ctx context.Context, setmealID int64, ds []SetmealDish) error {
	if err := r.DeleteSetmealDishes(ctx, []int64{setmealID}); err != nil {
		return err
	}
	if len(ds) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []any{setmealID, d.DishID, d.Name, d.Price, d.Copies, d.Sort})
	}
	_, err := postgres.InsertRows(ctx, r.DB, "setmeal_dishes", []string{"setmeal_id", "dish_id", "name", "price", "copies", "sort"}, rows)
	return err
}

func (r *Repo) DeleteSetmealDishes(ctx context.Context, setmealIDs []int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM setmeal_dishes WHERE setmeal_id = ANY($1)`, setmealIDs)
	return err
}

// Store adds transactions to Repo.
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

func (s *Store) InTx(ctx context.Context, fn func(Writer) error) error {
	return postgres.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(&Repo{DB: tx})
	})
}

// ---- helpers ----

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func oneRow[T any](v T, err error) (T, bool, error) {
	var zero T
	if postgres.IsNoRows(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return d, nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var (
		c   Category
		typ int
	)
	err := row.Scan(&c.ID, &typ, &c.Name, &c.Sort, &c.CreatedAt, &c.UpdatedAt)
	c.Type = CategoryType(typ)
	return c, err
}

func scanDish(row pgx.Row) (Dish, error) {
	var (
		d      Dish
		price  string
		status int
	)
	if err := row.Scan(&d.ID, &d.Name, &d.CategoryID, &price, &d.Code, &d.Image, &d.Description, &status, &d.Sort, &d.UpdatedAt); err != nil {
		return Dish{}, err
	}
	d.Status = Status(status)
	var err error
	d.Price, err = parseMoney(price)
	return d, err
}

func scanSetmeal(row pgx.Row) (Setmeal, error) {
	var (
		s      Setmeal
		price  string
		status int
	)
	if err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &price, &status, &s.Code, &s.Description, &s.Image, &s.UpdatedAt); err != nil {
		return Setmeal{}, err
	}
	s.Status = Status(status)
	var err error
	s.Price, err = parseMoney(price)
	return s, err
}
