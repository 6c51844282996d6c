package pgstore

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error) {
	rows, err := s.db.Query(ctx, `
SELECT key, value
FROM aftership_attributes
WHERE key_group = $1 AND entity_id = $2
`, keyGroup, entityID)
	if err != nil {
		return nil, errors.Wrap(err, "select attributes")
	}
	defer rows.Close()

	out := models.Attributes{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "scan attribute")
		}
		out[k] = v
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) SaveAttribute(ctx context.Context, a models.Attribute) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO aftership_attributes (entity_id, key_group, key, value, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (key_group, entity_id, key)
DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, a.EntityID, a.KeyGroup, a.Key, a.Value)
	if err != nil {
		return errors.Wrap(err, "upsert attribute")
	}
	return nil
}

// DeleteAttributes удаляет указанные ключи, а без ключей все атрибуты сущности.
func (s *Storage) DeleteAttributes(ctx context.Context, keyGroup string, entityID int64, keys ...string) error {
	var err error
	if len(keys) == 0 {
		_, err = s.db.Exec(ctx, `DELETE FROM aftership_attributes WHERE key_group = $1 AND entity_id = $2`, keyGroup, entityID)
	} else {
		_, err = s.db.Exec(ctx, `DELETE FROM aftership_attributes WHERE key_group = $1 AND entity_id = $2 AND key = ANY($3)`, keyGroup, entityID, keys)
	}
	if err != nil {
		return errors.Wrap(err, "delete attributes")
	}
	return nil
}
