package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultRedisPrefix = "blackjack:account:"
	// adjustAttempts bounds optimistic retries when a watched key changes.
	adjustAttempts = 10
)

// RedisStore keeps each account as a JSON value under prefix+id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the redis server at addr.
func NewRedisStore(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis address")
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, id string) (Account, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return Account{}, ErrNotFound
	} else if err != nil {
		return Account{}, err
	}
	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	return acct, nil
}

func (s *RedisStore) Save(ctx context.Context, acct Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+acct.ID, raw, 0).Err()
}

// Adjust applies d inside a WATCH/MULTI transaction, retrying when another
// client changes the account in between.
func (s *RedisStore) Adjust(ctx context.Context, id string, d Delta) (Account, error) {
	key := s.prefix + id
	var out Account
	apply := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		var acct Account
		if err := json.Unmarshal(raw, &acct); err != nil {
			return fmt.Errorf("decode account %s: %w", id, err)
		}
		next, err := d.apply(acct)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for attempt := 0; attempt < adjustAttempts; attempt++ {
		err := s.client.Watch(ctx, apply, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return Account{}, err
		}
		return out, nil
	}
	return Account{}, fmt.Errorf("adjust account %s: gave up after %d conflicting updates", id, adjustAttempts)
}

func (s *RedisStore) List(ctx context.Context) ([]Account, error) {
	var out []Account
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(s.prefix):]
		acct, err := s.Load(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
