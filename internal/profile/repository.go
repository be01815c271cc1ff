package profile

import (
	"context"
)

// Repository defines profile persistence. One row per owner.
type Repository interface {
	GetByUser(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}
