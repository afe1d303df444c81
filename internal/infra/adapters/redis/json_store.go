package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const maxWatchRetries = 10

var errTooManyRetries = errors.New("optimistic transaction retries exhausted")

// jsonStore хранит состояние встречи как JSON под ключом prefix+meetingID
type jsonStore[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func newJSONStore[T any](client *goredis.Client, prefix string, ttl time.Duration) *jsonStore[T] {
	return &jsonStore[T]{client: client, prefix: prefix, ttl: ttl}
}

func (s *jsonStore[T]) key(meetingID uuid.UUID) string {
	return s.prefix + meetingID.String()
}

func (s *jsonStore[T]) Set(ctx context.Context, meetingID uuid.UUID, state T) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := s.client.Set(ctx, s.key(meetingID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key(meetingID), err)
	}

	return nil
}

func (s *jsonStore[T]) Get(ctx context.Context, meetingID uuid.UUID) (T, bool, error) {
	return decode[T](s.client.Get(ctx, s.key(meetingID)))
}

func (s *jsonStore[T]) Delete(ctx context.Context, meetingID uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(meetingID)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", s.key(meetingID), err)
	}

	return nil
}

// update - чтение-изменение-запись в WATCH/MULTI, повторяется при конкурентной записи
func (s *jsonStore[T]) update(
	ctx context.Context,
	meetingID uuid.UUID,
	fn func(state T, ok bool) (T, error),
) (T, error) {
	key := s.key(meetingID)

	var next T

	txf := func(tx *goredis.Tx) error {
		cur, ok, err := decode[T](tx.Get(ctx, key))
		if err != nil {
			return err
		}

		next, err = fn(cur, ok)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})

		return err
	}

	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		if err != nil {
			var zero T
			return zero, err
		}

		return next, nil
	}

	var zero T

	return zero, fmt.Errorf("update %s: %w", key, errTooManyRetries)
}

func decode[T any](cmd *goredis.StringCmd) (T, bool, error) {
	var state T

	data, err := cmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return state, false, nil
	}

	if err != nil {
		return state, false, fmt.Errorf("get state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("unmarshal state: %w", err)
	}

	return state, true, nil
}
