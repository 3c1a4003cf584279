// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import "context"

// Namespace prefixes every key before delegating to the wrapped [Store].
//
// Reader sessions use it to scope the fixed logical keys to one profile:
// "progress" becomes "profile:<id>:progress" in the backend.
type Namespace struct {
	inner  Store
	prefix string
}

// NewNamespace returns a view of inner restricted to keys starting with prefix.
func NewNamespace(inner Store, prefix string) *Namespace {
	return &Namespace{inner: inner, prefix: prefix}
}

// Get implements [Store].
func (namespace *Namespace) Get(context context.Context, key string) (string, error) {
	return namespace.inner.Get(context, namespace.prefix+key)
}

// Set implements [Store].
func (namespace *Namespace) Set(context context.Context, key, value string) error {
	return namespace.inner.Set(context, namespace.prefix+key, value)
}

// Prefix returns the key prefix of this namespace.
func (namespace *Namespace) Prefix() string {
	return namespace.prefix
}
