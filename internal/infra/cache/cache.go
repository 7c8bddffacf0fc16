package cache

import (
	"context"
	"errors"
)

// カートの表示用ビューを載せる小さなキャッシュ。
// 値はusecase側でJSONにして渡す。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
