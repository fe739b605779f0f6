// Package session 进程内的会话存储，按玩家ID索引，带过期时间。
package session

import "context"

// Store 会话存储
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, v T) error
	Delete(ctx context.Context, id string) error
}
