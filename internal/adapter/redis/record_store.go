package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/schema"
)

const (
	itemField    = "item"
	versionField = "version"
)

// casPut replaces the record only if its stored version still matches.
// A missing record counts as version 0.
// KEYS[1]=record key, ARGV[1]=expected version, ARGV[2]=new version, ARGV[3]=item JSON
var casPut = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur == false then cur = '0' end
if cur ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[2], 'item', ARGV[3])
return 1
`)

// recordStore keeps schema-encoded records as DynamoDB JSON in one hash per record.
type recordStore[T any] struct {
	rdb    *goredis.Client
	schema *schema.Schema[T]
}

func (s *recordStore[T]) key(id string) string {
	return keyPrefix + s.schema.Table + ":" + id
}

// get returns nil, nil when the record does not exist.
func (s *recordStore[T]) get(ctx context.Context, id string) (*T, error) {
	raw, err := s.rdb.HGet(ctx, s.key(id), itemField).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", s.schema.Table, id, err)
	}

	var item schema.Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", s.schema.Table, id, err)
	}
	return s.schema.Decode(item)
}

func (s *recordStore[T]) put(ctx context.Context, v *T) error {
	expected := s.schema.Version(v)
	next := *v
	s.schema.SetVersion(&next, expected+1)

	raw, err := json.Marshal(s.schema.Encode(&next))
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.schema.Table, err)
	}

	id := s.schema.Key(v)
	ok, err := casPut.Run(ctx, s.rdb, []string{s.key(id)},
		strconv.FormatInt(expected, 10), strconv.FormatInt(expected+1, 10), string(raw)).Int()
	if err != nil {
		return fmt.Errorf("failed to put %s %s: %w", s.schema.Table, id, err)
	}
	if ok == 0 {
		return fmt.Errorf("put %s %s at version %d: %w", s.schema.Table, id, expected, domain.ErrConflict)
	}

	s.schema.SetVersion(v, expected+1)
	return nil
}

func (s *recordStore[T]) delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", s.schema.Table, id, err)
	}
	return nil
}
