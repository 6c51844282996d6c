package rediscache

import (
	"context"
	"strconv"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// AttributeStore хранит атрибуты сущности в одном hash:
// "attrs:{keyGroup}:{entityID}".
type AttributeStore struct {
	c *redis.Client
}

func NewAttributeStore(c *redis.Client) *AttributeStore {
	return &AttributeStore{c: c}
}

func attrKey(keyGroup string, entityID int64) string {
	return "attrs:" + keyGroup + ":" + strconv.FormatInt(entityID, 10)
}

func (s *AttributeStore) GetAttributes(ctx context.Context, keyGroup string, entityID int64) (models.Attributes, error) {
	m, err := s.c.HGetAll(ctx, attrKey(keyGroup, entityID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis hgetall")
	}
	return models.Attributes(m), nil
}

func (s *AttributeStore) SaveAttribute(ctx context.Context, a models.Attribute) error {
	if err := s.c.HSet(ctx, attrKey(a.KeyGroup, a.EntityID), a.Key, a.Value).Err(); err != nil {
		return errors.Wrap(err, "redis hset")
	}
	return nil
}

func (s *AttributeStore) DeleteAttributes(ctx context.Context, keyGroup string, entityID int64, keys ...string) error {
	var err error
	if len(keys) == 0 {
		err = s.c.Del(ctx, attrKey(keyGroup, entityID)).Err()
	} else {
		err = s.c.HDel(ctx, attrKey(keyGroup, entityID), keys...).Err()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "redis delete attributes")
	}
	return nil
}
