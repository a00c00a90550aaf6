package catalog

import (
	"sync"

	"edicanon/internal/storage"
)

// Lookup serves the builder's color/size fallback from the local mirror.
// Results are memoized for the life of the lookup, which callers scope to
// one processing run; any storage error or miss reports not-found so the
// resolution chain can continue.
type Lookup struct {
	db *storage.DB

	mu    sync.Mutex
	cache map[string]cachedProduct
}

type cachedProduct struct {
	color string
	size  string
	found bool
}

func NewLookup(db *storage.DB) *Lookup {
	return &Lookup{db: db, cache: map[string]cachedProduct{}}
}

func (l *Lookup) Lookup(companyID, productID string) (string, string, bool) {
	key := companyID + "|" + productID

	l.mu.Lock()
	cached, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return cached.color, cached.size, cached.found
	}

	entry := cachedProduct{}
	product, err := l.db.GetCatalogProduct(companyID, productID)
	if err == nil && product != nil {
		entry.found = true
		if product.Color != nil {
			entry.color = *product.Color
		}
		if product.Size != nil {
			entry.size = *product.Size
		}
	}

	l.mu.Lock()
	l.cache[key] = entry
	l.mu.Unlock()

	return entry.color, entry.size, entry.found
}
