// Package cache holds list-view pages for a bounded time. Readers may see data
// up to the TTL old; writers bump a version so the next read on any instance
// misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nurpe/landuse-contracts/internal/model"
)

// ViewCache stores list pages. Callers take the key once, before reading
// storage, and use it for both GetPage and SetPage so a page read before a
// concurrent write is never filed under the post-write version.
type ViewCache interface {
	PageKey(ctx context.Context, filter model.ContractFilter) (string, error)
	GetPage(ctx context.Context, key string) (*model.ContractDetailsPage, bool, error)
	SetPage(ctx context.Context, key string, page *model.ContractDetailsPage) error
	Invalidate(ctx context.Context) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) PageKey(context.Context, model.ContractFilter) (string, error) { return "", nil }

func (Noop) GetPage(context.Context, string) (*model.ContractDetailsPage, bool, error) {
	return nil, false, nil
}

func (Noop) SetPage(context.Context, string, *model.ContractDetailsPage) error {
	return nil
}

func (Noop) Invalidate(context.Context) error { return nil }

const (
	keyPrefix  = "contracts:views:"
	versionKey = keyPrefix + "version"
)

type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// PageKey binds the filter to the current version.
func (r *Redis) PageKey(ctx context.Context, filter model.ContractFilter) (string, error) {
	version, err := r.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return keyPrefix + strconv.FormatInt(version, 10) + ":" + FilterKey(filter), nil
}

func (r *Redis) GetPage(ctx context.Context, key string) (*model.ContractDetailsPage, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var page model.ContractDetailsPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("decode cached page: %w", err)
	}
	return &page, true, nil
}

func (r *Redis) SetPage(ctx context.Context, key string, page *model.ContractDetailsPage) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, versionKey).Err()
}

// FilterKey is a stable digest of the filter fields.
func FilterKey(filter model.ContractFilter) string {
	status, ward := "", ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.Ward != nil {
		ward = *filter.Ward
	}
	raw, _ := json.Marshal([]interface{}{filter.Search, status, ward, filter.Limit, filter.Offset})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:12])
}
