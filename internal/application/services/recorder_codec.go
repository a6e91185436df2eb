package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avatarctic/node-cache/internal/core/ports"
)

func lookup[T any](ctx context.Context, r ports.Recorder, key string) (T, bool, error) {
	var v T
	b, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("decode cached value: %w", err)
	}
	return v, true, nil
}

func store[T any](ctx context.Context, r ports.Recorder, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return r.Record(ctx, key, b)
}
