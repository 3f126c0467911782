package lock

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrInvalidKey  = errors.New("lock_key_empty")
)

// Locker serializes work on a key across goroutines (Local) or nodes (Redis).
// The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func UserKey(userID snowflake.ID) string {
	return "lock:user:" + userID.String()
}

func ProjectKey(projectID snowflake.ID) string {
	return "lock:project:" + projectID.String()
}

func ItemKey(itemID snowflake.ID) string {
	return "lock:item:" + itemID.String()
}
