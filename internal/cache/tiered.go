package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var _ Cache = (*Tiered)(nil)

// Tiered reads the local tier first and falls back to the shared tier,
// copying shared hits into the local one. Shared tier failures are logged
// and treated as misses so a redis outage only costs a database query.
type Tiered struct {
	local    Cache
	shared   Cache
	localTTL time.Duration
}

func NewTiered(local, shared Cache, localTTL time.Duration) *Tiered {
	return &Tiered{local: local, shared: shared, localTTL: localTTL}
}

func (t *Tiered) Get(ctx context.Context, key string, v any) (bool, error) {
	if ok, err := t.local.Get(ctx, key, v); err == nil && ok {
		return true, nil
	}

	ok, err := t.shared.Get(ctx, key, v)
	if err != nil {
		logrus.Warnf("shared cache get %s: %v", key, err)
		return false, nil
	}
	if ok {
		_ = t.local.Set(ctx, key, v, t.localTTL)
	}
	return ok, nil
}

func (t *Tiered) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if err := t.local.Set(ctx, key, v, min(ttl, t.localTTL)); err != nil {
		return err
	}
	if err := t.shared.Set(ctx, key, v, ttl); err != nil {
		logrus.Warnf("shared cache set %s: %v", key, err)
	}
	return nil
}

func (t *Tiered) Flush(ctx context.Context) error {
	if err := t.local.Flush(ctx); err != nil {
		return err
	}
	return t.shared.Flush(ctx)
}
