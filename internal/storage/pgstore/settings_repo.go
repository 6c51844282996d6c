package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// LoadSettings возвращает все сохранённые пары имя → значение.
func (s *Storage) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name, value FROM aftership_settings`)
	if err != nil {
		return nil, errors.Wrap(err, "select settings")
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var n, v string
		if err := rows.Scan(&n, &v); err != nil {
			return nil, errors.Wrap(err, "scan setting")
		}
		out[n] = v
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SaveSettings делает upsert всех значений в одной транзакции.
func (s *Storage) SaveSettings(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for n, v := range values {
		_, err := tx.Exec(ctx, `
INSERT INTO aftership_settings (name, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name)
DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, n, v)
		if err != nil {
			return errors.Wrap(err, "upsert setting")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}
