package cache

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	c := NewInMemoryCache(cfg)

	key := GenerateKey(PrefixProcessorCustomer, "stripe", "cus_1")
	assert.Equal(t, "processor_customer:v1:stripe:cus_1", key)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, "cust_1", 0)
	v, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "cust_1", v)

	c.Delete(ctx, key)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)

	c.Set(ctx, key, "cust_1", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestDisabledCacheNeverHits(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	c := NewInMemoryCache(cfg)

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
