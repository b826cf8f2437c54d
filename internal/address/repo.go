package address

import (
	"context"

	"github.com/ariefcatur/go-takeout/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

const columns = `id, user_id, consignee, phone, sex, province_code, province_name, city_code, city_name,
	district_code, district_name, detail, label, is_default, created_at, updated_at`

// ByID returns found=false when no row has id.
func (r *Repo) ByID(ctx context.Context, id int64) (Entry, bool, error) {
	e, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM address_book WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Entry{}, false, nil
	}
	return e, err == nil, err
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM address_book WHERE user_id=$1 ORDER BY is_default DESC, updated_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) Insert(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO address_book(user_id, consignee, phone, sex, province_code, province_name, city_code, city_name,
			district_code, district_name, detail, label, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		e.UserID, e.Consignee, e.Phone, e.Sex, e.ProvinceCode, e.ProvinceName, e.CityCode, e.CityName,
		e.DistrictCode, e.DistrictName, e.Detail, e.Label, e.IsDefault).Scan(&id)
	return id, err
}

// Update rewrites the writable columns of e; it does not touch is_default.
func (r *Repo) Update(ctx context.Context, e Entry) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE address_book SET consignee=$2, phone=$3, sex=$4, province_code=$5, province_name=$6,
			city_code=$7, city_name=$8, district_code=$9, district_name=$10, detail=$11, label=$12, updated_at=now()
		WHERE id=$1`,
		e.ID, e.Consignee, e.Phone, e.Sex, e.ProvinceCode, e.ProvinceName, e.CityCode, e.CityName,
		e.DistrictCode, e.DistrictName, e.Detail, e.Label)
	return err
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM address_book WHERE id=$1`, id)
	return err
}

func (r *Repo) ClearDefault(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, `UPDATE address_book SET is_default=false, updated_at=now() WHERE user_id=$1 AND is_default`, userID)
	return err
}

// MarkDefault returns false when id does not belong to userID.
func (r *Repo) MarkDefault(ctx context.Context, userID, id int64) (bool, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE address_book SET is_default=true, updated_at=now() WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

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

func (s *Store) InTx(ctx context.Context, fn func(EntryStore) error) error {
	return postgres.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return fn(&Repo{DB: tx})
	})
}

func scan(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.Consignee, &e.Phone, &e.Sex, &e.ProvinceCode, &e.ProvinceName,
		&e.CityCode, &e.CityName, &e.DistrictCode, &e.DistrictName, &e.Detail, &e.Label, &e.IsDefault,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}
