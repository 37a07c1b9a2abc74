package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// namedRow is the shared shape of tags and ingredients.
type namedRow struct {
	ID        int
	UserID    int
	Name      string
	CreatedAt time.Time
}

// taxonomyTable implements owner-scoped CRUD for a name-only table that
// recipes reference through a join table.
type taxonomyTable struct {
	db *sql.DB

	listQuery     string
	assignedQuery string
	getQuery      string
	manyQuery     string
	insertQuery   string
	updateQuery   string
	deleteQuery   string
}

func newTaxonomyTable(db *sql.DB, table, joinTable, joinColumn string) taxonomyTable {
	const columns = `t.id, t.user_id, t.name, t.created_at`
	return taxonomyTable{
		db: db,
		listQuery: fmt.Sprintf(`
			SELECT %s FROM %s t
			WHERE t.user_id = $1
			ORDER BY t.name DESC, t.id DESC`, columns, table),
		assignedQuery: fmt.Sprintf(`
			SELECT %s FROM %s t
			WHERE t.user_id = $1
				AND EXISTS (
					SELECT 1 FROM %s j
					JOIN recipes r ON r.id = j.recipe_id
					WHERE j.%s = t.id AND r.user_id = $1
				)
			ORDER BY t.name DESC, t.id DESC`, columns, table, joinTable, joinColumn),
		getQuery: fmt.Sprintf(`
			SELECT %s FROM %s t
			WHERE t.id = $1 AND t.user_id = $2`, columns, table),
		manyQuery: fmt.Sprintf(`
			SELECT %s FROM %s t
			WHERE t.user_id = $1 AND t.id = ANY($2)
			ORDER BY t.name DESC, t.id DESC`, columns, table),
		insertQuery: fmt.Sprintf(`
			INSERT INTO %s (user_id, name, created_at)
			VALUES ($1, $2, $3)
			RETURNING id`, table),
		updateQuery: fmt.Sprintf(`UPDATE %s SET name = $1 WHERE id = $2 AND user_id = $3`, table),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table),
	}
}

func (t taxonomyTable) list(ctx context.Context, owner int, assignedOnly bool) ([]namedRow, error) {
	query := t.listQuery
	if assignedOnly {
		query = t.assignedQuery
	}
	return t.queryRows(ctx, query, owner)
}

func (t taxonomyTable) many(ctx context.Context, owner int, ids []int) ([]namedRow, error) {
	if len(ids) == 0 {
		return []namedRow{}, nil
	}
	return t.queryRows(ctx, t.manyQuery, owner, pq.Array(ids))
}

func (t taxonomyTable) get(ctx context.Context, owner, id int) (namedRow, error) {
	var row namedRow
	err := t.db.QueryRowContext(ctx, t.getQuery, id, owner).Scan(&row.ID, &row.UserID, &row.Name, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return namedRow{}, ErrNotFound
		}
		return namedRow{}, err
	}
	return row, nil
}

func (t taxonomyTable) create(ctx context.Context, row namedRow) (namedRow, error) {
	row.CreatedAt = time.Now()
	if err := t.db.QueryRowContext(ctx, t.insertQuery, row.UserID, row.Name, row.CreatedAt).Scan(&row.ID); err != nil {
		return namedRow{}, mapWriteError(err)
	}
	return row, nil
}

func (t taxonomyTable) rename(ctx context.Context, owner, id int, name string) error {
	result, err := t.db.ExecContext(ctx, t.updateQuery, name, id, owner)
	if err != nil {
		return mapWriteError(err)
	}
	return expectAffected(result)
}

func (t taxonomyTable) delete(ctx context.Context, owner, id int) error {
	result, err := t.db.ExecContext(ctx, t.deleteQuery, id, owner)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (t taxonomyTable) queryRows(ctx context.Context, query string, args ...any) ([]namedRow, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]namedRow, 0)
	for rows.Next() {
		var row namedRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Name, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
