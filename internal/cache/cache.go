package cache

import (
	"context"
	"time"

	"sistemasj/backend/internal/domain"
)

// StorefrontCache holds the public catalog listing. A miss is not an error;
// callers fall through to the repository.
type StorefrontCache interface {
	Get(ctx context.Context) ([]domain.Product, bool, error)
	Set(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopStorefrontCache struct{}

func (NoopStorefrontCache) Get(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopStorefrontCache) Set(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopStorefrontCache) Invalidate(_ context.Context) error {
	return nil
}
