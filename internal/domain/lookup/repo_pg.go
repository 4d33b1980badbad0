package lookup

import (
	"context"
	"fmt"

	"github.com/medapp/medapp/internal/platform/db"
)

type repoPG struct{ pool db.Querier }

func NewRepoPG(pool db.Querier) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) list(ctx context.Context, query string) ([]Item, error) {
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repoPG) ListPatients(ctx context.Context) ([]Item, error) {
	items, err := r.list(ctx, `SELECT id, full_name FROM patient ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return items, nil
}

func (r *repoPG) ListDoctors(ctx context.Context) ([]Item, error) {
	items, err := r.list(ctx, `SELECT id, full_name FROM doctor ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return items, nil
}

func (r *repoPG) ListMedicines(ctx context.Context) ([]Item, error) {
	items, err := r.list(ctx, `SELECT id, name FROM medicine ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return items, nil
}

func (r *repoPG) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *repoPG) PatientExists(ctx context.Context, id int64) (bool, error) {
	ok, err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check patient %d: %w", id, err)
	}
	return ok, nil
}

func (r *repoPG) DoctorExists(ctx context.Context, id int64) (bool, error) {
	ok, err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM doctor WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check doctor %d: %w", id, err)
	}
	return ok, nil
}

func (r *repoPG) CountMedicines(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicine WHERE id = ANY($1)`, ids).Scan(&n); err != nil {
		return 0, fmt.Errorf("count medicines: %w", err)
	}
	return n, nil
}
