// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/storyweaver/internal/platform/database/schema"
)

// Postgres implements [Store] over the reader.kv table.
//
// The table is created by the embedded migrations in platform/migration.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

/*
Get returns the value stored under key.

Returns:
  - string: The stored value
  - error: ErrNotFound on pgx.ErrNoRows, ErrUnavailable otherwise
*/
func (store *Postgres) Get(context context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.ReaderKV.Value,
		schema.ReaderKV.Table,
		schema.ReaderKV.Key,
	)

	var value string
	if err := store.pool.QueryRow(context, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", unavailable("postgres get", err)
	}
	return value, nil
}

/*
Set upserts key.

Description: A single INSERT ... ON CONFLICT statement so concurrent writers
never observe a missing row between delete and insert.
*/
func (store *Postgres) Set(context context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, NOW())
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s
	`,
		schema.ReaderKV.Table,
		schema.ReaderKV.Key, schema.ReaderKV.Value, schema.ReaderKV.UpdatedAt,
		schema.ReaderKV.Key,
		schema.ReaderKV.Value, schema.ReaderKV.Value,
		schema.ReaderKV.UpdatedAt, schema.ReaderKV.UpdatedAt,
	)

	if _, err := store.pool.Exec(context, query, key, value); err != nil {
		return unavailable("postgres set", err)
	}
	return nil
}
