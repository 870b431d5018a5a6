package cache

import (
	"time"

	merchantdomain "github.com/rupeeback/verify/internal/merchant/domain"
)

const defaultMerchantTTL = 5 * time.Minute

// MerchantCache stores merchant lookups for the verification hot path.
type MerchantCache interface {
	Get(id string) (*merchantdomain.Merchant, bool)
	Set(id string, merchant *merchantdomain.Merchant)
}

type merchantCache struct {
	entries *Cache[string, *merchantdomain.Merchant]
	ttl     time.Duration
}

func NewMerchantCache() MerchantCache {
	return &merchantCache{
		entries: NewTTLCache[string, *merchantdomain.Merchant](),
		ttl:     defaultMerchantTTL,
	}
}

func (c *merchantCache) Get(id string) (*merchantdomain.Merchant, bool) {
	return c.entries.Get(id)
}

func (c *merchantCache) Set(id string, merchant *merchantdomain.Merchant) {
	if merchant == nil {
		return
	}
	c.entries.Set(id, merchant, c.ttl)
}
