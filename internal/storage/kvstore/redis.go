// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by [Redis].
const DefaultRedisPrefix = "storyweaver:kv:"

// Redis implements [Store] on top of a go-redis client.
//
// Values are stored without TTL: reading state is expected to outlive the process.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps client. An empty prefix falls back to [DefaultRedisPrefix].
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

/*
Get reads key from Redis.

Returns:
  - string: The stored value
  - error: ErrNotFound on redis.Nil, ErrUnavailable on connectivity errors
*/
func (store *Redis) Get(context context.Context, key string) (string, error) {
	value, err := store.client.Get(context, store.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", unavailable("redis get", err)
	}
	return value, nil
}

// Set writes key to Redis without expiration.
func (store *Redis) Set(context context.Context, key, value string) error {
	if err := store.client.Set(context, store.prefix+key, value, 0).Err(); err != nil {
		return unavailable("redis set", err)
	}
	return nil
}
