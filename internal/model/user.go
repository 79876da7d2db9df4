package model

import (
	"context"
	"time"
)

// UserStore resolves usernames to internal user keys.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, username string) (User, error)
}

// User is the owning principal of a set of mobility points.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}
